package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/example/go-deepqa/internal/safetensors"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var tensorName string

	cmd := &cobra.Command{
		Use:   "inspect <file.safetensors>",
		Short: "Show the metadata and tensors of an indexed batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := safetensors.OpenStore(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if tensorName != "" {
				t, err := store.Tensor(tensorName)
				if err != nil {
					return err
				}
				printTensorRows(w, t)
				return w.Flush()
			}

			meta := store.Metadata()
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, meta[k])
			}

			for _, name := range store.Names() {
				t, err := store.Tensor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "tensor %s\t%v\n", name, t.Shape)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&tensorName, "tensor", "", "Print the values of this tensor, one row per instance")

	return cmd
}

// printTensorRows prints one line per leading-dimension entry.
func printTensorRows(w *tabwriter.Writer, t *safetensors.Tensor) {
	if len(t.Shape) == 0 || t.Shape[0] == 0 {
		fmt.Fprintln(w, t.Data)
		return
	}

	rows := int(t.Shape[0])
	width := len(t.Data) / rows
	for i := range rows {
		fmt.Fprintf(w, "%d\t%v\n", i, t.Data[i*width:(i+1)*width])
	}
}
