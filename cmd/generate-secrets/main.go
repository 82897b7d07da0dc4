package main

import (
	"fmt"
	"log"

	"github.com/vietbus/ticketing-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for VietBus Ticketing")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, err := utils.GenerateSecret(32) // 256-bit
	if err != nil {
		log.Fatalf("Failed to generate JWT secret: %v", err)
	}

	fmt.Println("Add this to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Println()
	fmt.Println("VNPAY_TMN_CODE and VNPAY_HASH_SECRET are issued by the")
	fmt.Println("gateway when the merchant account is registered; they are")
	fmt.Println("not generated locally.")
	fmt.Println()
	fmt.Println("IMPORTANT: Keep these secrets safe and never commit them to version control!")
	fmt.Println("===========================================")
}
