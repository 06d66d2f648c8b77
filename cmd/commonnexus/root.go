package main

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/dlce-eva/commonnexus/pkg/nexus"
	"github.com/dlce-eva/commonnexus/pkg/tools"
)

// fileConfig is the TOML shape accepted by --config.
type fileConfig struct {
	Strict         bool `toml:"strict"`
	Tolerant       bool `toml:"tolerant"`
	HyphenAsText   bool `toml:"hyphen_as_text"`
	AsteriskAsText bool `toml:"asterisk_as_text"`
}

// options collects the persistent flags; flag values override the config
// file.
type options struct {
	strict     bool
	tolerant   bool
	configPath string
}

// parseConfig assembles the nexus configuration from config file and flags.
// Lenient-mode warnings go to stderr.
func (o *options) parseConfig() (nexus.Config, error) {
	cfg := nexus.DefaultConfig()
	if o.configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(o.configPath, &fc); err != nil {
			return cfg, fmt.Errorf("reading %s: %w", o.configPath, err)
		}
		cfg.Strict = fc.Strict
		cfg.Tolerant = fc.Tolerant
		cfg.HyphenAsText = fc.HyphenAsText
		cfg.AsteriskAsText = fc.AsteriskAsText
	}
	if o.strict {
		cfg.Strict = true
	}
	if o.tolerant {
		cfg.Tolerant = true
	}
	cfg.Warn = func(msg string) {
		fmt.Fprintln(os.Stderr, "warning:", msg)
	}
	return cfg, nil
}

// readDocument parses the file at path, or stdin when path is "-".
func (o *options) readDocument(path string) (*nexus.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	cfg, err := o.parseConfig()
	if err != nil {
		return nil, err
	}
	return nexus.Parse(string(data), cfg)
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "commonnexus",
		Short:         "Read, validate and rewrite NEXUS files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false,
		"treat recoverable problems as fatal")
	root.PersistentFlags().BoolVar(&opts.tolerant, "tolerant", false,
		"keep unsupported FORMAT payloads readable as raw tokens")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"TOML configuration file")

	root.AddCommand(
		newValidateCommand(opts),
		newNormaliseCommand(opts),
		newCombineCommand(opts),
		newBinariseCommand(opts),
		newMultistatiseCommand(opts),
	)
	return root
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Parse and validate a NEXUS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.readDocument(args[0])
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d blocks)\n", args[0], len(doc.Blocks()))
			return nil
		},
	}
}

func newNormaliseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "normalise <file>",
		Short: "Rewrite a NEXUS file into canonical shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.readDocument(args[0])
			if err != nil {
				return err
			}
			norm, err := tools.Normalise(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), norm.Render())
			return nil
		},
	}
}

func newCombineCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <file>...",
		Short: "Merge several NEXUS files into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]*nexus.Document, len(args))
			for i, arg := range args {
				doc, err := opts.readDocument(arg)
				if err != nil {
					return err
				}
				docs[i] = doc
			}
			combined, err := tools.Combine(docs...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), combined.Render())
			return nil
		},
	}
}

func newBinariseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "binarise <file>",
		Short: "Recode a multistate STANDARD matrix as binary characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.readDocument(args[0])
			if err != nil {
				return err
			}
			bin, err := tools.Binarise(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bin.Render())
			return nil
		},
	}
}

func newMultistatiseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "multistatise <file>",
		Short: "Collapse a binary matrix into one multistate character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := opts.readDocument(args[0])
			if err != nil {
				return err
			}
			multi, err := tools.Multistatise(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), multi.Render())
			return nil
		},
	}
}
