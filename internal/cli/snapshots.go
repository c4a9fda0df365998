package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/depsgraph/internal/repo"
	"github.com/shaiso/depsgraph/internal/snapshot"
)

// NewSnapshotsCmd создаёт команду списка сохранённых снимков.
func NewSnapshotsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots [scene]",
		Short: "List stored snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			var scene string
			if len(args) == 1 {
				scene = args[0]
			}

			store, err := env.OpenStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), scene)
			if err != nil {
				return err
			}

			headers := []string{"ID", "SCENE", "FINGERPRINT", "RELATIONS", "CREATED"}
			rows := make([][]string, len(list))
			for i, s := range list {
				rows[i] = []string{
					s.ID.String(),
					s.Scene,
					shortFingerprint(s.Fingerprint),
					strconv.Itoa(s.Relations),
					s.CreatedAt.Local().Format(time.DateTime),
				}
			}
			return out.Print(headers, rows, list)
		},
	}
}

// NewShowCmd создаёт команду вывода связей снимка.
func NewShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <scene|id|file>",
		Short: "Show relations of a snapshot",
		Long: `Show prints relations of a snapshot. The argument is a snapshot file
(.json or .zst), a snapshot ID or a scene name (its latest snapshot).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()

			loader := &snapshotLoader{env: env}
			defer loader.Close()

			snap, err := loader.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out.JSONMode() {
				return out.JSON(snap)
			}

			headers := []string{"FROM", "TO", "KIND", "LABEL"}
			rows := make([][]string, len(snap.Relations))
			for i, r := range snap.Relations {
				rows[i] = []string{r.From, r.To, r.Kind, r.Label}
			}
			out.Success(fmt.Sprintf("Snapshot %s of %q, fingerprint %s", snap.ID, snap.Scene, shortFingerprint(snap.Fingerprint)))
			return out.Table(headers, rows)
		},
	}
}

// diffResult — разница связей двух снимков.
type diffResult struct {
	From    uuid.UUID                 `json:"from"`
	To      uuid.UUID                 `json:"to"`
	Added   []snapshot.RelationRecord `json:"added"`
	Removed []snapshot.RelationRecord `json:"removed"`
}

// NewDiffCmd создаёт команду сравнения снимков.
func NewDiffCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <scene> | diff <old> <new>",
		Short: "Compare relations of two snapshots",
		Long: `Diff compares relations of two snapshots. With one scene argument the
two latest stored snapshots of the scene are compared.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := env.Output()
			ctx := cmd.Context()

			loader := &snapshotLoader{env: env}
			defer loader.Close()

			var oldSnap, newSnap *snapshot.Snapshot
			var err error
			if len(args) == 1 {
				oldSnap, newSnap, err = loader.LatestPair(ctx, args[0])
			} else {
				oldSnap, err = loader.Load(ctx, args[0])
				if err == nil {
					newSnap, err = loader.Load(ctx, args[1])
				}
			}
			if err != nil {
				return err
			}

			added, removed := snapshot.Diff(oldSnap, newSnap)
			if out.JSONMode() {
				return out.JSON(diffResult{From: oldSnap.ID, To: newSnap.ID, Added: added, Removed: removed})
			}

			lines := make([]string, 0, len(added)+len(removed))
			for _, r := range removed {
				lines = append(lines, "- "+r.String())
			}
			for _, r := range added {
				lines = append(lines, "+ "+r.String())
			}
			if len(lines) == 0 {
				out.Success("No relation changes")
				return nil
			}
			out.Lines(lines)
			return nil
		},
	}
}

// snapshotLoader находит снимки по ссылке, открывая хранилище по требованию.
type snapshotLoader struct {
	env   *Env
	store repo.Store
}

func (l *snapshotLoader) open(ctx context.Context) (repo.Store, error) {
	if l.store != nil {
		return l.store, nil
	}
	store, err := l.env.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	l.store = store
	return store, nil
}

// Load возвращает снимок по ссылке: файл, ID или имя сцены.
func (l *snapshotLoader) Load(ctx context.Context, ref string) (*snapshot.Snapshot, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return readSnapshot(ref)
	}

	store, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	if id, err := uuid.Parse(ref); err == nil {
		return store.Get(ctx, id)
	}

	snap, err := store.Latest(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("no snapshots of scene %q: %w", ref, err)
	}
	return snap, err
}

// LatestPair возвращает предпоследний и последний снимки сцены.
func (l *snapshotLoader) LatestPair(ctx context.Context, scene string) (*snapshot.Snapshot, *snapshot.Snapshot, error) {
	store, err := l.open(ctx)
	if err != nil {
		return nil, nil, err
	}

	list, err := store.List(ctx, scene)
	if err != nil {
		return nil, nil, err
	}
	if len(list) < 2 {
		return nil, nil, fmt.Errorf("scene %q has %d snapshots, need at least 2", scene, len(list))
	}

	newSnap, err := store.Get(ctx, list[0].ID)
	if err != nil {
		return nil, nil, err
	}
	oldSnap, err := store.Get(ctx, list[1].ID)
	if err != nil {
		return nil, nil, err
	}
	return oldSnap, newSnap, nil
}

// Close закрывает хранилище, если оно было открыто.
func (l *snapshotLoader) Close() {
	if l.store != nil {
		l.store.Close()
	}
}
