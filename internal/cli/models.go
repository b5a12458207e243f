package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// ModelInfo describes a registered model.
type ModelInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DefaultSeed uint64   `json:"default_seed"`
	Globals     []string `json:"globals"`
}

// ModelList is the payload of the models command.
type ModelList struct {
	Models []ModelInfo `json:"models"`
}

func (l ModelList) renderText(w io.Writer) {
	for _, m := range l.Models {
		fmt.Fprintf(w, "%-12s %s (seed %d)\n", m.Name, m.Description, m.DefaultSeed)
	}
}

// NewModelsCommand creates the models command.
func NewModelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "models",
		Short:         "List runnable models",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := ModelList{Models: []ModelInfo{}}
			for _, m := range rootOpts.registry().List() {
				info := ModelInfo{
					Name:        m.Name(),
					Description: m.Description(),
					DefaultSeed: m.DefaultSeed(),
					Globals:     []string{},
				}
				for _, g := range m.Globals() {
					info.Globals = append(info.Globals, g.GlobalName())
				}
				list.Models = append(list.Models, info)
			}
			return rootOpts.formatter(cmd).Success(list)
		},
	}
}
