package main

import (
	"log"

	"hrpay/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatalf("payroll server failed: %v", err)
	}
}
