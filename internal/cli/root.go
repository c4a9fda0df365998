package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду depsgraph со всеми подкомандами.
// Флаги корневой команды записываются в env.
func NewRootCmd(env *Env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "depsgraph",
		Short:         "depsgraph — dependency graph builder and link validator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&env.JSON, "json", false, "Output in JSON format")
	flags.StringArrayVar(&env.Vars, "var", nil, "HCL variable as key=value (repeatable)")
	flags.StringVar(&env.Store, "store", "sqlite", "Snapshot store: sqlite or postgres")
	flags.StringVar(&env.DB, "db", "", "SQLite file or PostgreSQL DSN (default "+DefaultSQLitePath+" or $DB_URL)")

	root.AddCommand(
		NewBuildCmd(env),
		NewValidateCmd(env),
		NewExportCmd(env),
		NewSnapshotsCmd(env),
		NewShowCmd(env),
		NewDiffCmd(env),
		NewKindsCmd(env),
		NewCallbacksCmd(env),
		NewWatchCmd(env),
	)

	return root
}
