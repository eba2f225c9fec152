package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the store and apply schema migrations",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("store ready backend=%s path=%s\n", cfg.StoreBackend, cfg.DBPath)
	return nil
}
