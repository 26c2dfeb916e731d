package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/coah80/appxzip/internal/config"
	"github.com/coah80/appxzip/internal/credentials"
	"github.com/coah80/appxzip/internal/failure"
	"github.com/coah80/appxzip/internal/logging"
	"github.com/coah80/appxzip/internal/pipeline"
	"github.com/coah80/appxzip/internal/util"
)

const tokenEnv = "APPXZIP_API_TOKEN"

func newProcessCommand(verbose *bool) *cobra.Command {
	var token string
	var outDir string

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Run one archive URL through the pipeline and keep the output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadStandalone()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if *verbose {
				level = "debug"
			}
			logger, err := logging.Setup(logging.Options{Level: level, File: cfg.LogFile})
			if err != nil {
				return err
			}

			if token == "" {
				token = os.Getenv(tokenEnv)
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("an API token is required (--token or %s)", tokenEnv)
			}
			if !credentials.ValidateShape(token) {
				return errors.New("the API token does not look like a JWT")
			}

			target := strings.TrimSpace(args[0])
			if v := util.ValidateDownloadURL(target, cfg.BlockPrivateURLs); !v.Valid {
				return failure.Wrap(failure.ErrMalformedURL, "validate url", v.Error, nil)
			}

			fs := afero.NewOsFs()
			if err := fs.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			orch := pipeline.FromConfig(cfg, fs, nil, logger)
			artifact, err := orch.Run(cmd.Context(), target, token)
			if err != nil {
				return err
			}

			dest := filepath.Join(outDir, artifact.Name)
			if err := moveFile(fs, artifact.Path, dest); err != nil {
				_ = fs.Remove(artifact.Path)
				return fmt.Errorf("move output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", dest, humanize.Bytes(uint64(artifact.Size)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "API token (defaults to $"+tokenEnv+")")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory receiving the output file")

	return cmd
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(fs afero.Fs, src, dst string) error {
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return fs.Remove(src)
}
