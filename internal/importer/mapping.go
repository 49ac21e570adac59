package importer

import (
	"errors"
	"fmt"
	"regexp"

	"terminal-terrace/foodgram/config"
	"terminal-terrace/foodgram/internal/catalog"
)

// ColumnKind CSV 列的取值类型
type ColumnKind string

const (
	KindString ColumnKind = "string"
	KindInt    ColumnKind = "int"
	// KindRef 值为 RefTable.RefColumn, 导入时解析为对应行的 id
	KindRef ColumnKind = "ref"
)

// Column 一个 CSV 表头到数据库列的映射
type Column struct {
	Name      string
	Field     string
	Kind      ColumnKind
	RefTable  string
	RefColumn string
}

// Mapping 模型的导入映射
// Complete 在插入前补全缺省值, 可为 nil
type Mapping struct {
	Model    string
	Table    string
	Columns  []Column
	Complete func(row map[string]any)
}

var (
	ErrUnknownModel   = errors.New("unknown import model")
	ErrInvalidMapping = errors.New("invalid import mapping")
)

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// idColumn 可选的主键列, 缺省时由数据库分配
var idColumn = Column{Name: "id", Field: "id", Kind: KindInt}

// DefaultMappings 内置的食材与标签映射
func DefaultMappings() map[string]Mapping {
	return map[string]Mapping{
		"ingredient": {
			Model: "ingredient",
			Table: "ingredients",
			Columns: []Column{
				idColumn,
				{Name: "name", Field: "name", Kind: KindString},
				{Name: "measurement_unit", Field: "measurement_unit", Kind: KindString},
			},
		},
		"tag": {
			Model: "tag",
			Table: "tags",
			Columns: []Column{
				idColumn,
				{Name: "name", Field: "name", Kind: KindString},
				{Name: "color", Field: "color", Kind: KindString},
				{Name: "slug", Field: "slug", Kind: KindString},
			},
			Complete: completeTag,
		},
	}
}

// completeTag slug 为空时由名称生成
func completeTag(row map[string]any) {
	if s, _ := row["slug"].(string); s != "" {
		return
	}
	if name, _ := row["name"].(string); name != "" {
		row["slug"] = catalog.DeriveSlug(name)
	}
}

// FromConfig 在内置映射上追加或覆盖配置中的映射
func FromConfig(cfg config.ImportConfig) (map[string]Mapping, error) {
	mappings := DefaultMappings()
	for _, m := range cfg.Mappings {
		mapping := Mapping{Model: m.Model, Table: m.Table}
		for _, c := range m.Columns {
			kind := ColumnKind(c.Kind)
			if kind == "" {
				kind = KindString
			}
			mapping.Columns = append(mapping.Columns, Column{
				Name:      c.Name,
				Field:     c.Field,
				Kind:      kind,
				RefTable:  c.RefTable,
				RefColumn: c.RefColumn,
			})
		}
		// 覆盖内置映射时保留补全逻辑
		if builtin, ok := mappings[m.Model]; ok && builtin.Table == mapping.Table {
			mapping.Complete = builtin.Complete
		}
		if err := mapping.Validate(); err != nil {
			return nil, err
		}
		mappings[m.Model] = mapping
	}
	return mappings, nil
}

// Validate 表名与列名会拼进 SQL, 只允许简单标识符
func (m Mapping) Validate() error {
	if m.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalidMapping)
	}
	if !identifierRegex.MatchString(m.Table) {
		return fmt.Errorf("%w: %s: bad table %q", ErrInvalidMapping, m.Model, m.Table)
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("%w: %s: no columns", ErrInvalidMapping, m.Model)
	}

	names := make(map[string]struct{}, len(m.Columns))
	for _, c := range m.Columns {
		if c.Name == "" {
			return fmt.Errorf("%w: %s: column without name", ErrInvalidMapping, m.Model)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate column %q", ErrInvalidMapping, m.Model, c.Name)
		}
		names[c.Name] = struct{}{}

		if !identifierRegex.MatchString(c.Field) {
			return fmt.Errorf("%w: %s: bad field %q", ErrInvalidMapping, m.Model, c.Field)
		}
		switch c.Kind {
		case KindString, KindInt:
		case KindRef:
			if !identifierRegex.MatchString(c.RefTable) || !identifierRegex.MatchString(c.RefColumn) {
				return fmt.Errorf("%w: %s: column %q needs ref_table and ref_column", ErrInvalidMapping, m.Model, c.Name)
			}
		default:
			return fmt.Errorf("%w: %s: column %q has unknown kind %q", ErrInvalidMapping, m.Model, c.Name, c.Kind)
		}
	}
	return nil
}

func (m Mapping) column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
