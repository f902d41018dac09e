package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/airflowfield/dashboard/internal/session"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: tokeninfo <token>")
		os.Exit(1)
	}

	id, err := session.Decode(strings.TrimPrefix(os.Args[1], "Bearer "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("subject: %s\n", id.SubjectID)
	fmt.Printf("role:    %s\n", id.Role)
	fmt.Printf("email:   %s\n", id.Email)
	fmt.Printf("landing: %s\n", id.LandingPath())
}
