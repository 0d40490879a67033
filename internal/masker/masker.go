package masker

import (
	"strings"
	"unicode/utf8"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// Masker replaces personal data in fetched rows with fake values
type Masker struct {
	Faker  faker.Faker
	Logger logrus.FieldLogger
}

// NewMasker creates a new masker
func NewMasker(logger logrus.FieldLogger) *Masker {
	return &Masker{
		Faker:  faker.New(),
		Logger: logger,
	}
}

// MaskValue returns a fake replacement for a column judged by its name, or
// false when the column does not look like personal data.
func (m *Masker) MaskValue(column models.ColumnValue) (interface{}, bool) {
	if !column.SQLType.IsCharacter() {
		return nil, false
	}

	columnName := strings.ToLower(column.Name)
	var value string

	switch {
	case strings.Contains(columnName, "email"):
		value = m.Faker.Internet().Email()
	case strings.Contains(columnName, "name") && !strings.Contains(columnName, "file"):
		switch {
		case strings.Contains(columnName, "first"):
			value = m.Faker.Person().FirstName()
		case strings.Contains(columnName, "last"):
			value = m.Faker.Person().LastName()
		case strings.Contains(columnName, "user") || strings.Contains(columnName, "login"):
			value = m.Faker.Internet().User()
		case strings.Contains(columnName, "company") || strings.Contains(columnName, "business"):
			value = m.Faker.Company().Name()
		default:
			value = m.Faker.Person().Name()
		}
	case strings.Contains(columnName, "phone") || strings.Contains(columnName, "mobile"):
		value = m.Faker.Phone().Number()
	case strings.Contains(columnName, "address") && !strings.Contains(columnName, "ip"):
		value = m.Faker.Address().Address()
	case strings.Contains(columnName, "city"):
		value = m.Faker.Address().City()
	case columnName == "state" || strings.HasSuffix(columnName, "_state"):
		value = m.Faker.Address().State()
	case strings.Contains(columnName, "country"):
		value = m.Faker.Address().Country()
	case strings.Contains(columnName, "zip") || strings.Contains(columnName, "postal"):
		value = m.Faker.Address().PostCode()
	case strings.Contains(columnName, "url") || strings.Contains(columnName, "website"):
		value = m.Faker.Internet().URL()
	case columnName == "ip" || strings.HasPrefix(columnName, "ip_") || strings.HasSuffix(columnName, "_ip"):
		value = m.Faker.Internet().Ipv4()
	case strings.Contains(columnName, "password") || strings.Contains(columnName, "secret"):
		value = m.Faker.Internet().Password()
	case strings.Contains(columnName, "token"):
		value = m.Faker.RandomStringWithLength(32)
	default:
		return nil, false
	}

	return truncate(value, column.Size), true
}

// truncate cuts value to size characters; a size of 0 means unlimited
func truncate(value string, size int64) string {
	if size <= 0 || int64(utf8.RuneCountInString(value)) <= size {
		return value
	}
	runes := []rune(value)
	return string(runes[:size])
}

// MaskRow returns a masked copy of row. Columns named in keys and NULL values are kept.
func (m *Masker) MaskRow(row models.RowRecord, keys map[string]bool) models.RowRecord {
	masked := models.NewRowRecord()
	for name, value := range row.Values {
		if keys[name] || value.Data == nil {
			masked.Set(value)
			continue
		}
		if fake, ok := m.MaskValue(value); ok {
			masked.Set(value.WithData(fake))
		} else {
			masked.Set(value)
		}
	}
	return masked
}

// MaskTable returns a copy of table with every row masked
func (m *Masker) MaskTable(table *models.TableDescriptor, keys map[string]bool) *models.TableDescriptor {
	rows := make([]models.RowRecord, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = m.MaskRow(row, keys)
	}
	return table.CloneWithRows(rows)
}

// MaskResult returns a copy of result with every table masked. Key columns
// (the match column and both sides of foreign keys) keep their values so the
// copied rows still reference each other.
func (m *Masker) MaskResult(result *scanner.ScanResult) *scanner.ScanResult {
	masked := *result
	clones := make(map[string]*models.TableDescriptor, len(result.Tables))

	masked.Tables = make([]*models.TableDescriptor, len(result.Tables))
	for i, table := range result.Tables {
		clone := m.MaskTable(table, result.KeyColumns(table.Name))
		clones[table.Name] = clone
		masked.Tables[i] = clone
		m.Logger.WithField("table", table.Name).Debugf("Masked %d row(s)", len(table.Rows))
	}

	if result.InsertionOrder != nil {
		masked.InsertionOrder = make([]*models.TableDescriptor, len(result.InsertionOrder))
		for i, table := range result.InsertionOrder {
			masked.InsertionOrder[i] = clones[table.Name]
		}
	}

	return &masked
}
