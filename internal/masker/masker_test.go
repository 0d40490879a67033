package masker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

func newTestMasker() *Masker {
	logger, _ := test.NewNullLogger()
	return NewMasker(logger)
}

func TestMaskValue(t *testing.T) {
	m := newTestMasker()

	email, ok := m.MaskValue(models.NewColumnValue("email", models.VarChar, 255).WithData("real@example.org"))
	if !ok {
		t.Fatal("Expected email column to be masked")
	}
	if !strings.Contains(email.(string), "@") {
		t.Errorf("Expected a fake email address, got %v", email)
	}

	if _, ok := m.MaskValue(models.NewColumnValue("amount", models.VarChar, 10)); ok {
		t.Error("Expected amount column to be left alone")
	}
	if _, ok := m.MaskValue(models.NewColumnValue("filename", models.VarChar, 255)); ok {
		t.Error("Expected filename column to be left alone")
	}
	if _, ok := m.MaskValue(models.NewColumnValue("description", models.VarChar, 255)); ok {
		t.Error("Expected description column not to be treated as an IP address")
	}
	if _, ok := m.MaskValue(models.NewColumnValue("phone", models.Integer, 10)); ok {
		t.Error("Expected non-character columns to be left alone")
	}

	short, ok := m.MaskValue(models.NewColumnValue("full_name", models.Char, 3))
	if !ok {
		t.Fatal("Expected full_name column to be masked")
	}
	if utf8.RuneCountInString(short.(string)) > 3 {
		t.Errorf("Expected value truncated to the column size, got %q", short)
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	tests := []struct {
		value    string
		size     int64
		expected string
	}{
		{"Zoë Müller", 3, "Zoë"},
		{"Zoë Müller", 0, "Zoë Müller"},
		{"日本語", 2, "日本"},
		{"abc", 10, "abc"},
	}

	for _, tt := range tests {
		got := truncate(tt.value, tt.size)
		if got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.value, tt.size, got, tt.expected)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.value, tt.size)
		}
	}
}

func TestMaskRowKeepsKeysAndNulls(t *testing.T) {
	m := newTestMasker()

	row := models.NewRowRecord()
	row.Set(models.NewColumnValue("cid", models.VarChar, 36).WithData("tenant-1"))
	row.Set(models.NewColumnValue("user_name", models.VarChar, 64).WithData("user_name-key"))
	row.Set(models.NewColumnValue("email", models.VarChar, 255).WithData("alice@example.org"))
	row.Set(models.NewColumnValue("phone", models.VarChar, 32).WithData(nil))

	masked := m.MaskRow(row, map[string]bool{"cid": true, "user_name": true})

	if masked.Value("cid") != "tenant-1" {
		t.Errorf("Expected match column to be kept, got %v", masked.Value("cid"))
	}
	if masked.Value("user_name") != "user_name-key" {
		t.Errorf("Expected key column to be kept, got %v", masked.Value("user_name"))
	}
	if masked.Value("phone") != nil {
		t.Errorf("Expected NULL to stay NULL, got %v", masked.Value("phone"))
	}
	if masked.Value("email") == "alice@example.org" {
		t.Error("Expected email to be replaced")
	}
	if row.Value("email") != "alice@example.org" {
		t.Error("Expected the source row to be untouched")
	}
}

func TestMaskResult(t *testing.T) {
	m := newTestMasker()

	customers := models.NewTableDescriptor("customers", []models.ColumnValue{
		models.NewColumnValue("id", models.Integer, 10),
		models.NewColumnValue("email", models.VarChar, 255),
	})
	customers.AddIncomingReference("orders")
	row := models.NewRowRecord()
	row.Set(models.NewColumnValue("id", models.Integer, 10).WithData(int64(1)))
	row.Set(models.NewColumnValue("email", models.VarChar, 255).WithData("bob@example.org"))
	customers.AppendRow(row)

	orders := models.NewTableDescriptor("orders", nil)
	orders.AddOutgoingReference("customers")

	result := &scanner.ScanResult{
		MatchColumn:    "cid",
		Tables:         []*models.TableDescriptor{orders, customers},
		InsertionOrder: []*models.TableDescriptor{customers, orders},
		ForeignKeys: map[string][]models.ForeignKey{
			"orders": {{Table: "orders", Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"}},
		},
	}

	masked := m.MaskResult(result)

	if masked.InsertionOrder[0] != masked.Tables[1] {
		t.Error("Expected insertion order to point at the masked tables")
	}
	maskedCustomers := masked.InsertionOrder[0]
	if maskedCustomers == customers {
		t.Fatal("Expected a copy of the customers table")
	}
	if maskedCustomers.Rows[0].Value("id") != int64(1) {
		t.Errorf("Expected referenced key to be kept, got %v", maskedCustomers.Rows[0].Value("id"))
	}
	if maskedCustomers.Rows[0].Value("email") == "bob@example.org" {
		t.Error("Expected email to be masked")
	}
	if refs := maskedCustomers.IncomingReferences(); len(refs) != 1 || refs[0] != "orders" {
		t.Errorf("Expected references to be copied, got %v", refs)
	}
	if customers.Rows[0].Value("email") != "bob@example.org" {
		t.Error("Expected the scanned rows to be untouched")
	}
}
