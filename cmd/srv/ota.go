package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webframp/otalog/otagen"
)

func newOTACommand() *cobra.Command {
	var (
		writeFlag bool
		baseFlag  string
		rootFlag  string
	)

	cmd := &cobra.Command{
		Use:         "ota <package.zip> <build.prop>",
		Short:       "Build the ota.json manifest for a ROM package",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfig": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			zipPath, propPath, err := otagen.SplitArgs(args[0], args[1])
			if err != nil {
				return err
			}
			build, err := otagen.New(zipPath, propPath, baseFlag)
			if err != nil {
				return err
			}
			data, err := build.JSON()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "device:  %s\nversion: %s\nurl:     %s\n\n%s\n\n",
				build.File.Device, build.File.Version, build.Manifest.Response[0].URL, data)
			if !writeFlag {
				fmt.Fprintf(out, "target: %s (use --write to save)\n", build.Path)
				return nil
			}
			path, err := build.Write(rootFlag)
			if err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}
			fmt.Fprintf(out, "saved %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&writeFlag, "write", "w", false, "Save the manifest instead of only previewing it")
	cmd.Flags().StringVar(&baseFlag, "base-url", otagen.DefaultBaseURL, "Download root the package is uploaded under")
	cmd.Flags().StringVar(&rootFlag, "root", ".", "Directory the public/ tree lives in")
	return cmd
}
