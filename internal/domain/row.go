package domain

// Row — одна строка входной таблицы.
//
// Row принадлежит оркестратору на время обработки строки
// и отбрасывается после получения RowOutcome.
type Row struct {
	// Index — номер строки данных (1-based, без учёта заголовка).
	Index int `json:"index"`

	// Columns — имена колонок в порядке заголовка.
	Columns []string `json:"columns"`

	// Values — сырые значения ячеек (колонка → текст).
	Values map[string]string `json:"values"`
}

// NewRow создаёт строку из заголовка и значений ячеек.
// Лишние ячейки отбрасываются, недостающие становятся пустыми строками.
func NewRow(index int, columns []string, cells []string) *Row {
	values := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(cells) {
			values[col] = cells[i]
		} else {
			values[col] = ""
		}
	}
	return &Row{
		Index:   index,
		Columns: columns,
		Values:  values,
	}
}

// Get возвращает сырое значение колонки.
func (r *Row) Get(column string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Values[column]
	return v, ok
}
