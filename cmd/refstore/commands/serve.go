package commands

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/logger"
	"github.com/marmos91/refstore/pkg/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP API over the ref store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		backend, closer, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closer()

		logger.InfoCtx(ctx, "http api listening", logger.Addr(serveAddr))
		return http.ListenAndServe(serveAddr, httpapi.NewRouter(backend))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
}
