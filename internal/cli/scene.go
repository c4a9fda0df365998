package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/depsgraph/internal/engine"
	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

// buildSummary — итог сборки одной сцены.
type buildSummary struct {
	Path       string   `json:"path"`
	Scene      string   `json:"scene"`
	Objects    int      `json:"objects"`
	Operations int      `json:"operations"`
	Relations  int      `json:"relations"`
	Violations []string `json:"order_violations,omitempty"`
}

// NewBuildCmd создаёт команду сборки графов сцен.
func NewBuildCmd(env *Env) *cobra.Command {
	var (
		patterns []string
		cycles   bool
		order    bool
	)

	cmd := &cobra.Command{
		Use:   "build <file|dir>...",
		Short: "Build and validate dependency graphs of scenes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			vars, err := env.ParseVars()
			if err != nil {
				return err
			}
			files, err := sceneFiles(args, patterns)
			if err != nil {
				return err
			}

			summaries := make([]buildSummary, 0, len(files))
			for _, path := range files {
				spec, err := engine.Parse(path, vars)
				if err != nil {
					return err
				}
				scene, err := engine.Build(cmd.Context(), spec, env.BuildOptions())
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				sum := buildSummary{
					Path:       path,
					Scene:      spec.Name,
					Objects:    len(scene.Objects),
					Operations: len(scene.Graph.Operations()),
					Relations:  len(scene.Graph.Relations()),
				}
				if cycles {
					if err := scene.Graph.DetectCycles(); err != nil {
						scene.Graph.Free()
						return fmt.Errorf("%s: %w", path, err)
					}
				}
				if order {
					for _, v := range engine.ComponentOrder(scene.Graph) {
						sum.Violations = append(sum.Violations, v.String())
					}
				}
				scene.Graph.Free()
				summaries = append(summaries, sum)
			}

			headers := []string{"SCENE", "PATH", "OBJECTS", "OPERATIONS", "RELATIONS"}
			rows := make([][]string, len(summaries))
			for i, s := range summaries {
				rows[i] = []string{
					s.Scene,
					s.Path,
					strconv.Itoa(s.Objects),
					strconv.Itoa(s.Operations),
					strconv.Itoa(s.Relations),
				}
			}
			if err := out.Print(headers, rows, summaries); err != nil {
				return err
			}

			if !out.JSONMode() {
				for _, s := range summaries {
					for _, v := range s.Violations {
						out.Warn(fmt.Sprintf("%s: component order: %s", s.Scene, v))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "Glob pattern for scene files in directories (default **/*)")
	cmd.Flags().BoolVar(&cycles, "cycles", false, "Fail if the graph contains a cycle")
	cmd.Flags().BoolVar(&order, "order", false, "Report relations that run against component order")

	return cmd
}

// validateResult — итог проверки одного описания.
type validateResult struct {
	Path  string `json:"path"`
	Scene string `json:"scene,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCmd создаёт команду проверки описаний сцен без сборки графа.
func NewValidateCmd(env *Env) *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Validate scene descriptions and callback names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			vars, err := env.ParseVars()
			if err != nil {
				return err
			}
			files, err := sceneFiles(args, patterns)
			if err != nil {
				return err
			}

			cbs := env.BuildOptions().Callbacks
			results := make([]validateResult, 0, len(files))
			invalid := 0
			for _, path := range files {
				res := validateResult{Path: path}

				spec, err := engine.Parse(path, vars)
				if err == nil {
					res.Scene = spec.Name
					err = engine.Validate(spec)
				}
				if err == nil {
					err = engine.ValidateCallbacks(spec, cbs)
				}

				if err != nil {
					res.Error = err.Error()
					invalid++
				} else {
					res.Valid = true
				}
				results = append(results, res)
			}

			headers := []string{"PATH", "SCENE", "VALID", "ERROR"}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{r.Path, r.Scene, strconv.FormatBool(r.Valid), r.Error}
			}
			if err := out.Print(headers, rows, results); err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%d of %d scenes invalid", invalid, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "Glob pattern for scene files in directories (default **/*)")

	return cmd
}

// NewExportCmd создаёт команду экспорта снимка графа сцены.
func NewExportCmd(env *Env) *cobra.Command {
	var (
		outPath string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a snapshot of the scene graph",
		Long: `Export builds the scene graph and writes its snapshot as JSON.
With --out ending in .zst the snapshot is written zstd-compressed.
With --save the snapshot is also stored in the snapshot store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()
			ctx := cmd.Context()

			vars, err := env.ParseVars()
			if err != nil {
				return err
			}
			spec, err := engine.Parse(args[0], vars)
			if err != nil {
				return err
			}
			scene, err := engine.Build(ctx, spec, env.BuildOptions())
			if err != nil {
				return err
			}
			snap, err := snapshot.Export(scene.Graph)
			scene.Graph.Free()
			if err != nil {
				return err
			}

			if save {
				store, err := env.OpenStore(ctx)
				if err != nil {
					return err
				}
				defer store.Close()

				err = store.Save(ctx, snap)
				switch {
				case errors.Is(err, repo.ErrAlreadyExists):
					out.Warn(fmt.Sprintf("snapshot of %q with fingerprint %s already stored", snap.Scene, shortFingerprint(snap.Fingerprint)))
				case err != nil:
					return err
				default:
					out.Success(fmt.Sprintf("Snapshot stored: %s", snap.ID))
				}
			}

			if outPath == "" {
				return out.JSON(snap)
			}
			return writeSnapshot(outPath, snap)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the snapshot to a file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Store the snapshot in the snapshot store")

	return cmd
}

// writeSnapshot записывает снимок в файл: .zst сжимается, иначе JSON.
func writeSnapshot(path string, s *snapshot.Snapshot) error {
	var (
		data []byte
		err  error
	)
	if filepath.Ext(path) == ".zst" {
		data, err = snapshot.Encode(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// readSnapshot читает снимок, записанный writeSnapshot.
func readSnapshot(path string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".zst" {
		return snapshot.Decode(data)
	}

	var s snapshot.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := snapshot.Verify(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
