// Command hashpw prints the bcrypt hash of a password for ADMIN_PASSWORD_HASH.
//
//	hashpw 'my admin password'
package main

import (
	"fmt"
	"os"

	"github.com/iliyamo/room-booking-sync/internal/utils"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	hash, err := utils.HashPassword(os.Args[1], utils.DefaultCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
