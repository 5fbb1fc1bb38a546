package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/spf13/cobra"

	"github.com/sensorable/vocyolo"
)

// newLog creates the logger of a run. Replaced in tests.
var newLog = func() (logs.Log, error) {
	return logs.NewLog()
}

// errFailures is returned after a completed run in which some images could not be processed.
var errFailures = errors.New("some images could not be converted, see the summary above")

// runFlags are the command line overrides of configuration values.
type runFlags struct {
	configPath    string
	source        string
	dest          string
	classes       []string
	orphans       string
	workers       int
	dataYAML      bool
	absolutePaths bool
	skipDifficult bool
	sizeFromImage bool
	resizeLonger  int
	resizeShorter int
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	rootCmd := &cobra.Command{
		Use:           "vocyolo",
		Short:         "Convert Pascal VOC annotations to a YOLO dataset",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			return runConversion(cmd, cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "vocyolo.toml", "Configuration file path")
	pf.StringVar(&flags.source, "source", "", "Pascal VOC tree (source_root)")
	pf.StringVar(&flags.dest, "dest", "", "Output tree (dest_root)")
	pf.StringSliceVar(&flags.classes, "classes", nil, "Ordered category allow-list, e.g. person,car")
	pf.StringVar(&flags.orphans, "orphans", "", "Orphan policy: drop, warn, error or keep")
	pf.IntVar(&flags.workers, "workers", 1, "Number of images processed concurrently")
	pf.BoolVar(&flags.dataYAML, "data-yaml", false, "Write data.yaml to the output tree")
	pf.BoolVar(&flags.absolutePaths, "absolute-paths", false, "Write absolute image paths to the manifests")
	pf.BoolVar(&flags.skipDifficult, "skip-difficult", false, "Drop objects marked as difficult")
	pf.BoolVar(&flags.sizeFromImage, "size-from-image", false, "Read missing image sizes from the image file")
	pf.IntVar(&flags.resizeLonger, "resize-longer", 0, "Resize images to this length of the longer side")
	pf.IntVar(&flags.resizeShorter, "resize-shorter", 0, "Resize images to this length of the shorter side")

	rootCmd.AddCommand(newConfigCommand(flags))

	return rootCmd
}

// load reads the configuration file and applies the flags that were set explicitly.
func (f *runFlags) load(cmd *cobra.Command) (*vocyolo.Config, error) {
	cfg, _, err := vocyolo.LoadConfig(strings.TrimSpace(f.configPath))
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.SourceRoot = f.source
	}
	if changed("dest") {
		cfg.DestRoot = f.dest
	}
	if changed("classes") {
		cfg.CategoryAllowlist = f.classes
		cfg.CategoryAllowlistFile = ""
	}
	if changed("orphans") {
		cfg.OrphanPolicy = vocyolo.OrphanPolicy(f.orphans)
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("data-yaml") {
		cfg.WriteDatasetYAML = f.dataYAML
	}
	if changed("absolute-paths") {
		cfg.ManifestAbsolutePaths = f.absolutePaths
	}
	if changed("skip-difficult") {
		cfg.SkipDifficult = f.skipDifficult
	}
	if changed("size-from-image") {
		cfg.SizeFromImage = f.sizeFromImage
	}
	if changed("resize-longer") {
		cfg.Images.ResizeLonger = f.resizeLonger
	}
	if changed("resize-shorter") {
		cfg.Images.ResizeShorter = f.resizeShorter
	}

	return cfg, nil
}

func runConversion(cmd *cobra.Command, cfg *vocyolo.Config) error {
	log, err := newLog()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	summary, err := vocyolo.Run(log, cfg)
	if err != nil {
		log.Errorf("Conversion failed: %v", err)
		return err
	}
	summary.Log(log)

	stdout := cmd.OutOrStdout()
	fmt.Fprintln(stdout, renderSummary(summary, shouldUseRoundedStyle(stdout)))
	if len(summary.Failures) > 0 {
		fmt.Fprintln(stdout, renderFailures(summary.Failures, shouldUseRoundedStyle(stdout)))
	}

	if !summary.OK() {
		return errFailures
	}
	return nil
}
