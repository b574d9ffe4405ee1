package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/FileDrop/internal/config"
	"github.com/dharsanguruparan/FileDrop/internal/files"
	"github.com/dharsanguruparan/FileDrop/internal/model"
	"github.com/dharsanguruparan/FileDrop/internal/naming"
	"github.com/dharsanguruparan/FileDrop/internal/server"
	"github.com/dharsanguruparan/FileDrop/internal/storage"
)

type overrides struct {
	addr         string
	dir          string
	maxFileBytes int64
	policy       string
}

func (o *overrides) register(cmd *cobra.Command, withServe bool) {
	cmd.Flags().StringVar(&o.dir, "dir", "", "Upload directory (overrides FILEDROP_UPLOAD_DIR)")
	if !withServe {
		return
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "Listen address (overrides FILEDROP_ADDRESS and PORT)")
	cmd.Flags().Int64Var(&o.maxFileBytes, "max-file-bytes", 0, "Per-file size ceiling in bytes, 0 for unlimited")
	cmd.Flags().StringVar(&o.policy, "policy", "", "Naming policy: suffix or probe")
}

// load reads the environment and applies only the flags the user set.
func (o *overrides) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Address = o.addr
	}
	if flags.Changed("dir") {
		cfg.UploadDir = o.dir
	}
	if flags.Changed("max-file-bytes") {
		if o.maxFileBytes < 0 {
			return nil, fmt.Errorf("--max-file-bytes must not be negative")
		}
		cfg.MaxFileSize = o.maxFileBytes
	}
	if flags.Changed("policy") {
		policy, err := naming.ParsePolicy(o.policy)
		if err != nil {
			return nil, err
		}
		cfg.NamingPolicy = policy
	}
	return cfg, nil
}

func openService(cfg *config.Config, logger *slog.Logger) (*files.Service, error) {
	dir, err := storage.New(cfg.UploadDir, cfg.NamingPolicy)
	if err != nil {
		return nil, err
	}
	return files.NewService(dir, files.Options{
		MaxFileSize:   cfg.MaxFileSize,
		MaxBatchFiles: cfg.MaxBatchFiles,
		Logger:        logger,
	}), nil
}

func newServeCmd() *cobra.Command {
	var o overrides
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			slog.SetDefault(logger)
			gin.SetMode(gin.ReleaseMode)

			svc, err := openService(cfg, logger)
			if err != nil {
				return err
			}
			return server.New(cfg, svc, logger).Serve(cmd.Context())
		},
	}
	o.register(cmd, true)
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		o      overrides
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			svc, err := openService(cfg, slog.New(slog.DiscardHandler))
			if err != nil {
				return err
			}
			list, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return writeTable(cmd.OutOrStdout(), list)
		},
	}
	o.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	return cmd
}

func writeTable(w io.Writer, list []model.StoredFile) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no files")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tORIGINAL\tSIZE\tTYPE\tUPLOADED")
	for _, f := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.OriginalName, f.FormattedSize, f.Type, humanize.Time(f.UploadDate))
	}
	return tw.Flush()
}
