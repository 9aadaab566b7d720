package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	pin := "1234"
	if len(os.Args) > 1 {
		pin = os.Args[1]
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), 12)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(h))
}
