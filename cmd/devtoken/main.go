package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/config"
)

// devtoken mints a bearer token signed with JWT_SECRET for local testing.
func main() {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		userID     string
		employeeID string
		role       string
		ttl        time.Duration
	)
	fs.StringVar(&userID, "user", "", "user id placed in the token")
	fs.StringVar(&employeeID, "employee", "", "employee id linked to the user")
	fs.StringVar(&role, "role", auth.RoleEmployee, "employee, payroll_officer, approver or admin")
	fs.DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if userID == "" {
		fatalf("missing --user")
	}
	if _, known := auth.RolePermissions[role]; !known {
		fatalf("unknown role: %s", role)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		fatalf("JWT_SECRET is required")
	}
	token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{UserID: userID, EmployeeID: employeeID, Role: role}, ttl)
	if err != nil {
		fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "devtoken: "+format+"\n", args...)
	os.Exit(1)
}
