package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"github.com/shaiso/depsgraph/internal/depsgraph"
)

var (
	// ErrGraphNotUsable — граф не проверен, сломан или освобождён.
	ErrGraphNotUsable = errors.New("graph is not usable")

	// ErrFingerprintMismatch — содержимое снимка не совпадает с отпечатком.
	ErrFingerprintMismatch = errors.New("snapshot fingerprint mismatch")
)

// Snapshot — неизменяемый снимок проверенного графа.
type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	GraphID     uuid.UUID `json:"graph_id"`
	Scene       string    `json:"scene"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`

	Entities   []EntityRecord    `json:"entities"`
	Operations []OperationRecord `json:"operations"`
	Relations  []RelationRecord  `json:"relations"`
}

// EntityRecord — объект сцены в снимке.
type EntityRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Components []string `json:"components"`
	Bones      []string `json:"bones,omitempty"`
	TimeSource bool     `json:"time_source,omitempty"`
}

// OperationRecord — операция в снимке.
type OperationRecord struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Type     string `json:"type"`
	Callback bool   `json:"callback"`
}

// RelationRecord — связь между операциями в снимке.
type RelationRecord struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

// String возвращает связь в виде "from -> to (kind)".
func (r RelationRecord) String() string {
	return fmt.Sprintf("%s -> %s (%s)", r.From, r.To, r.Kind)
}

// Export снимает проверенный граф.
//
// Записи упорядочены так же, как Graph.Entities/Operations/Relations,
// поэтому два одинаково построенных графа дают одинаковый отпечаток.
func Export(g *depsgraph.Graph) (*Snapshot, error) {
	if g == nil || !g.Usable() {
		return nil, ErrGraphNotUsable
	}

	s := &Snapshot{
		ID:        uuid.New(),
		GraphID:   g.ID,
		Scene:     g.Name,
		CreatedAt: time.Now().UTC(),
	}

	for _, e := range g.Entities() {
		rec := EntityRecord{
			ID:         e.Object().ID.String(),
			Name:       e.Name(),
			Type:       string(e.Object().Type),
			TimeSource: e.TimeSource() != nil,
		}
		for _, c := range e.Components() {
			rec.Components = append(rec.Components, c.Kind().String())
			if pose, ok := c.(*depsgraph.PoseComponentNode); ok {
				for _, b := range pose.Bones() {
					rec.Bones = append(rec.Bones, b.Name())
				}
			}
		}
		s.Entities = append(s.Entities, rec)
	}

	for _, op := range g.Operations() {
		s.Operations = append(s.Operations, OperationRecord{
			Path:     op.Path(),
			Kind:     op.Kind().String(),
			Type:     op.Type.String(),
			Callback: op.Callback != nil,
		})
	}

	for _, rel := range g.Relations() {
		s.Relations = append(s.Relations, RelationRecord{
			From:  depsgraph.Path(rel.From),
			To:    depsgraph.Path(rel.To),
			Kind:  rel.Kind.String(),
			Label: rel.Label,
		})
	}

	fp, err := Fingerprint(s)
	if err != nil {
		return nil, err
	}
	s.Fingerprint = fp

	return s, nil
}

// content — часть снимка, от которой зависит отпечаток.
type content struct {
	Entities   []EntityRecord    `json:"entities"`
	Operations []OperationRecord `json:"operations"`
	Relations  []RelationRecord  `json:"relations"`
}

// Fingerprint вычисляет BLAKE3 от содержимого снимка.
// ID, время создания и ID графа в отпечаток не входят.
func Fingerprint(s *Snapshot) (string, error) {
	data, err := json.Marshal(content{
		Entities:   s.Entities,
		Operations: s.Operations,
		Relations:  s.Relations,
	})
	if err != nil {
		return "", fmt.Errorf("marshal snapshot content: %w", err)
	}

	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Verify проверяет, что отпечаток соответствует содержимому.
func Verify(s *Snapshot) error {
	fp, err := Fingerprint(s)
	if err != nil {
		return err
	}
	if fp != s.Fingerprint {
		return fmt.Errorf("%w: stored %s, computed %s", ErrFingerprintMismatch, s.Fingerprint, fp)
	}
	return nil
}

// Diff сравнивает связи двух снимков.
// Возвращает связи, которые есть только в b (added) и только в a (removed).
func Diff(a, b *Snapshot) (added, removed []RelationRecord) {
	inA := make(map[RelationRecord]bool, len(a.Relations))
	for _, r := range a.Relations {
		inA[r] = true
	}
	inB := make(map[RelationRecord]bool, len(b.Relations))
	for _, r := range b.Relations {
		inB[r] = true
		if !inA[r] {
			added = append(added, r)
		}
	}
	for _, r := range a.Relations {
		if !inB[r] {
			removed = append(removed, r)
		}
	}

	sortRecords(added)
	sortRecords(removed)
	return added, removed
}

func sortRecords(rs []RelationRecord) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].String() < rs[j].String() })
}
