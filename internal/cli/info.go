package cli

import (
	"github.com/spf13/cobra"

	"github.com/shaiso/depsgraph/internal/callbacks"
	"github.com/shaiso/depsgraph/internal/depsgraph"
)

// kindInfo — описание зарегистрированного типа узла.
type kindInfo struct {
	Kind     string `json:"kind"`
	TypeName string `json:"type_name"`
	Class    string `json:"class"`
	Owner    string `json:"owner,omitempty"`
}

// NewKindsCmd создаёт команду вывода типов узлов.
func NewKindsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List registered node kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			kinds := listKinds(depsgraph.DefaultRegistry())

			headers := []string{"KIND", "TYPE NAME", "CLASS", "OWNER"}
			rows := make([][]string, len(kinds))
			for i, k := range kinds {
				rows[i] = []string{k.Kind, k.TypeName, k.Class, k.Owner}
			}
			return out.Print(headers, rows, kinds)
		},
	}
}

func listKinds(r *depsgraph.Registry) []kindInfo {
	kinds := r.Kinds()
	infos := make([]kindInfo, 0, len(kinds))
	for _, k := range kinds {
		f, err := r.Lookup(k)
		if err != nil {
			continue
		}

		info := kindInfo{Kind: k.String(), TypeName: f.TypeName(), Class: "generic"}
		switch {
		case k.IsOperation():
			info.Class = "operation"
			if owner, ok := k.OwnerKind(); ok {
				info.Owner = owner.String()
			}
		case k.IsComponent():
			info.Class = "component"
		}
		infos = append(infos, info)
	}
	return infos
}

// NewCallbacksCmd создаёт команду вывода стандартных функций вычисления.
func NewCallbacksCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "callbacks",
		Short: "List standard evaluation callbacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			names := callbacks.DefaultRegistry().Names()
			rows := make([][]string, len(names))
			for i, name := range names {
				rows[i] = []string{name}
			}
			return out.Print([]string{"NAME"}, rows, names)
		},
	}
}
