package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/gatepass/internal"
	coreuser "github.com/frahmantamala/gatepass/internal/core/user"
	"github.com/frahmantamala/gatepass/internal/user"
	"github.com/spf13/cobra"
)

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample accounts",
	Long:  `Seed one account per role for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.closeWithTimeout(30 * time.Second)

		accounts := []user.CreateUserDTO{
			{Name: "Campus Admin", Username: "admin", Email: "admin@campus.local", Role: string(coreuser.RoleAdmin)},
			{Name: "Tara Tutor", Username: "tutor", Email: "tutor@campus.local", Role: string(coreuser.RoleTutor)},
			{Name: "Walt Warden", Username: "warden", Email: "warden@campus.local", Role: string(coreuser.RoleWarden)},
			{Name: "Sam Security", Username: "security", Role: string(coreuser.RoleSecurity)},
			{Name: "Stu Dent", Username: "student", Email: "student@campus.local", Phone: "555-0100", Role: string(coreuser.RoleStudent)},
		}

		ctx := context.Background()
		for _, a := range accounts {
			a.Password = seedPassword
			u, err := deps.Users.Create(ctx, a)
			if errors.Is(err, internal.ErrUsernameTaken) {
				fmt.Printf("%s user already exists\n", a.Username)
				continue
			}
			if err != nil {
				log.Fatalf("failed to seed %s user: %v", a.Username, err)
			}
			fmt.Printf("Seeded %s user: %s (id %d)\n", u.Role, u.Username, u.ID)
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password for every seeded account")
}
