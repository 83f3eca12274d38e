package entity

// По полю FieldName ищутся дубликаты.
const FieldName = "name"

// Fields представляет документ в хранилище.
type Fields map[string]string

// IngredientRecord представляет ингредиент в инвентаре
type IngredientRecord struct {
	ID   string // идентификатор документа в хранилище
	Name string // нормализованное название
}

// NewIngredientFields собирает поля новой записи с нормализованным названием.
func NewIngredientFields(name string) Fields {
	return Fields{FieldName: NormalizeLabel(name)}
}
