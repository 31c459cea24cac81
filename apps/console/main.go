package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/lophoc/client"
)

var readPasswordFunc = term.ReadPassword // mockable

func main() {
	logger := log.New(os.Stderr, "CONSOLE : ", log.LstdFlags)

	baseURL := flag.String("url", "http://localhost:8000/api", "The API base URL.")
	uname := flag.String("username", "", "Log in as this teacher; the password is prompted. Needed when the API requires auth.")
	classroomID := flag.String("classroom", "", "Select this classroom on start.")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cl := client.New(*baseURL)
	if *uname != "" {
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			logger.Fatal(err)
		}
		if err = cl.Login(ctx, *uname, string(pwd)); err != nil {
			logger.Fatalf("login: %s", describe(err))
		}
	}

	c := newConsole(cl, os.Stdin, os.Stdout)
	if *classroomID != "" {
		if err := c.use(ctx, *classroomID); err != nil {
			logger.Fatalf("use classroom: %s", describe(err))
		}
	}
	fmt.Println(`Type "help" for the list of commands.`)
	if err := c.run(ctx); err != nil {
		logger.Fatal(err)
	}
}
