package main

import (
	"fmt"

	"loyalty-analytics-go/internal/common"

	"github.com/urfave/cli/v2"
)

func searchUser(c *cli.Context, s *session) error {
	users, err := common.ResolveUsers(c.Context, s.services.Entities, c.Args().First(), c.Int("limit"))
	if err != nil {
		return err
	}

	common.PrintHeader(fmt.Sprintf("USERS (%d)", len(users)), common.DefaultWidth)
	for _, u := range users {
		fmt.Printf("\n┌─ User: %s\n", u.Name)
		fmt.Printf("│  ID: %s\n", u.Id)
		fmt.Printf("│  Phone: %s\n", u.Phone)
		fmt.Printf("│  Email: %s\n", u.Email)
		fmt.Printf("└  Tier: %s\n", u.Tier)
	}
	if len(users) == 0 {
		fmt.Println("No matching users")
	}
	common.PrintFooter("Search complete", common.DefaultWidth)
	return nil
}
