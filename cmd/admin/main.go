package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
)

// dbFlags 覆盖环境变量中的数据库配置，留空则沿用环境变量。
type dbFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslMode  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags dbFlags

	root := &cobra.Command{
		Use:           "admin",
		Short:         "resume builder 运维工具",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.host, "db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
	pf.IntVar(&flags.port, "db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
	pf.StringVar(&flags.name, "db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
	pf.StringVar(&flags.user, "db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
	pf.StringVar(&flags.password, "db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
	pf.StringVar(&flags.sslMode, "db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")

	root.AddCommand(newMigrateCmd(&flags), newCreateUserCmd(&flags))
	return root
}

func newMigrateCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据表",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(flags)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "数据库迁移完成")
			return nil
		},
	}
}

func newCreateUserCmd(flags *dbFlags) *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "创建账号并打印随机初始密码",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(flags)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			return createUser(cmd.Context(), cmd, db, email, name)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "登录邮箱（必填）")
	cmd.Flags().StringVar(&name, "name", "", "显示名称")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createUser(ctx context.Context, cmd *cobra.Command, db *gorm.DB, email, name string) error {
	password, err := auth.GeneratePassword()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}

	user, err := auth.CreateUser(ctx, db, email, name, password)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "已创建账号：\n")
	fmt.Fprintf(out, "ID: %d\n", user.ID)
	fmt.Fprintf(out, "邮箱: %s\n", user.Email)
	fmt.Fprintf(out, "初始密码: %s\n", password)
	fmt.Fprintf(out, "提示：该密码仅显示一次，请妥善保存。\n")
	return nil
}

func openDatabase(flags *dbFlags) (*gorm.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if v := strings.TrimSpace(flags.host); v != "" {
		cfg.Host = v
	}
	if flags.port > 0 {
		cfg.Port = flags.port
	}
	if v := strings.TrimSpace(flags.name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(flags.user); v != "" {
		cfg.User = v
	}
	if flags.password != "" {
		cfg.Password = flags.password
	}
	if v := strings.TrimSpace(flags.sslMode); v != "" {
		cfg.SSLMode = v
	}
	if err := config.ValidateDatabase(cfg); err != nil {
		return nil, err
	}

	db, err := database.InitDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return db, nil
}
