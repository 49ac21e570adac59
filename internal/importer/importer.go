package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"terminal-terrace/foodgram/internal/logging"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMissingHeader = errors.New("csv file has no header row")
	ErrUnknownColumn = errors.New("unknown column")
	ErrBadValue      = errors.New("bad value")
	ErrRefNotFound   = errors.New("referenced row not found")
)

const batchSize = 500

// Result 导入统计, 已存在的行不计入 Inserted
type Result struct {
	Rows     int
	Inserted int64
}

// Importer 按映射把 CSV 导入数据库
type Importer struct {
	db       *gorm.DB
	mappings map[string]Mapping
}

func New(db *gorm.DB, mappings map[string]Mapping) *Importer {
	return &Importer{db: db, mappings: mappings}
}

// ImportFile 打开文件并导入
func (im *Importer) ImportFile(ctx context.Context, model, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.Import(ctx, model, f)
}

// Import 读取整个文件后在一个事务中写入
// 表头或取值有误时不写入任何数据, 重复导入时已存在的行被跳过
func (im *Importer) Import(ctx context.Context, model string, r io.Reader) (*Result, error) {
	mapping, ok := im.mappings[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	// 1. 解析表头, 可选的 UTF-8 BOM 会被去掉
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, err
	}

	columns := make([]Column, len(header))
	explicitID := false
	for i, name := range header {
		name = strings.TrimSpace(name)
		col, ok := mapping.column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%q", ErrUnknownColumn, model, name)
		}
		columns[i] = col
		explicitID = explicitID || col.Field == "id"
	}

	// 2. 读取全部行
	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	result := &Result{Rows: len(records)}
	if len(records) == 0 {
		return result, nil
	}

	// 3. 转换并写入
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := newRefResolver(tx)
		rows := make([]map[string]any, 0, len(records))
		for i, record := range records {
			row, err := convertRow(columns, record, refs)
			if err != nil {
				// 表头是第 1 行
				return fmt.Errorf("line %d: %w", i+2, err)
			}
			if mapping.Complete != nil {
				mapping.Complete(row)
			}
			rows = append(rows, row)
		}

		res := tx.Table(mapping.Table).
			Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(&rows, batchSize)
		if res.Error != nil {
			return res.Error
		}
		result.Inserted = res.RowsAffected

		if explicitID {
			return syncIDSequence(tx, mapping.Table)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("model", model).
		Int("rows", result.Rows).
		Int64("inserted", result.Inserted).
		Msg("CSV 导入完成")
	return result, nil
}

// syncIDSequence 显式写入 id 后把序列推进到当前最大值, 避免之后的插入冲突
// 表名已由 Mapping.Validate 校验
func syncIDSequence(tx *gorm.DB, table string) error {
	return tx.Exec(fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT COALESCE(MAX(id), 1) FROM %s))",
		table, table,
	)).Error
}

func convertRow(columns []Column, record []string, refs *refResolver) (map[string]any, error) {
	row := make(map[string]any, len(columns))
	for i, col := range columns {
		value := norm.NFC.String(strings.TrimSpace(record[i]))
		switch col.Kind {
		case KindInt:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrBadValue, col.Name, value)
			}
			row[col.Field] = n
		case KindRef:
			id, err := refs.resolve(col.RefTable, col.RefColumn, value)
			if err != nil {
				return nil, err
			}
			row[col.Field] = id
		default:
			row[col.Field] = value
		}
	}
	return row, nil
}

// refResolver 缓存 ref 列的解析结果
type refResolver struct {
	db    *gorm.DB
	cache map[string]uint
}

func newRefResolver(db *gorm.DB) *refResolver {
	return &refResolver{db: db, cache: make(map[string]uint)}
}

func (r *refResolver) resolve(table, column, value string) (uint, error) {
	key := table + "." + column + "=" + value
	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	var ids []uint
	err := r.db.Table(table).Where(clause.Eq{Column: clause.Column{Name: column}, Value: value}).
		Limit(1).Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s.%s=%q", ErrRefNotFound, table, column, value)
	}
	r.cache[key] = ids[0]
	return ids[0], nil
}
