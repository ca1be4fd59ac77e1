package main

import (
	"bytes"
	"context"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

func TestCreateUserPrintsUsablePassword(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:admin_create_user?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	if err := createUser(context.Background(), cmd, db, "Ops@Example.com", "Ops"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	m := regexp.MustCompile(`初始密码: (\S+)`).FindStringSubmatch(out.String())
	if m == nil {
		t.Fatalf("password not printed: %s", out.String())
	}
	if _, err := auth.Authenticate(context.Background(), db, "ops@example.com", m[1]); err != nil {
		t.Fatalf("printed password does not log in: %v", err)
	}

	if err := createUser(context.Background(), cmd, db, "ops@example.com", "Again"); err == nil {
		t.Fatal("expected duplicate email to fail")
	}
}

func TestCreateUserRequiresEmail(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"create-user"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Fatal("expected missing --email to fail")
	}
}
