package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/depsgraph/internal/domain"
)

// Поддерживаемые расширения файлов сцен.
var sceneExtensions = map[string]bool{
	".hcl":  true,
	".yaml": true,
	".yml":  true,
	".json": true,
}

// IsSceneFile сообщает, подходит ли расширение файла для описания сцены.
func IsSceneFile(path string) bool {
	return sceneExtensions[strings.ToLower(filepath.Ext(path))]
}

// Parse читает описание сцены из файла. Формат определяется по расширению.
//
// vars доступны в HCL как var.<name>; для YAML и JSON игнорируются.
// Если в описании нет имени, используется имя файла без расширения.
func Parse(path string, vars map[string]string) (*domain.SceneSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}

	var spec *domain.SceneSpec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		spec, err = ParseHCL(src, path, vars)
	case ".yaml", ".yml":
		spec, err = ParseYAML(src)
	case ".json":
		spec, err = ParseJSON(src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}

	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return spec, nil
}

// ParseHCL разбирает описание сцены в HCL.
func ParseHCL(src []byte, filename string, vars map[string]string) (*domain.SceneSpec, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}

	var spec domain.SceneSpec
	diags = gohcl.DecodeBody(file.Body, evalContext(vars), &spec)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrParse, diags.Error())
	}

	return &spec, nil
}

// evalContext делает переменные доступными как var.<name>.
func evalContext(vars map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		vals[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": cty.ObjectVal(vals),
		},
	}
}

// ParseYAML разбирает описание сцены в YAML. Неизвестные поля — ошибка.
func ParseYAML(src []byte) (*domain.SceneSpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var spec domain.SceneSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &spec, nil
}

// ParseJSON разбирает описание сцены в JSON. Неизвестные поля — ошибка.
func ParseJSON(src []byte) (*domain.SceneSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()

	var spec domain.SceneSpec
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &spec, nil
}
