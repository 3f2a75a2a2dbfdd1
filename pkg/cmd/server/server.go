package server

import (
	"github.com/spf13/cobra"

	"github.com/rallytrack/tracking-service-manager-go/pkg/cmd/server/http"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "commands regarding server",
	}
	cmd.AddCommand(http.NewHTTPServerCmd())
	return cmd
}
