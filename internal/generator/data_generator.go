package generator

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

var integerTypes = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true, "bigint": true,
}

var (
	lengthPattern = regexp.MustCompile(`\((\d+)`)
	optionPattern = regexp.MustCompile(`'([^']*)'`)
)

// DataGenerator produces sample raw values for a table's columns so a record can be
// inserted without typing every value by hand
type DataGenerator struct {
	Faker  faker.Faker
	Rand   *rand.Rand
	Logger *logrus.Logger
}

// NewDataGenerator creates a new data generator
func NewDataGenerator(logger *logrus.Logger) *DataGenerator {
	return NewSeededDataGenerator(time.Now().UnixNano(), logger)
}

// NewSeededDataGenerator creates a data generator with reproducible output
func NewSeededDataGenerator(seed int64, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:  faker.NewWithSeed(rand.NewSource(seed)),
		Rand:   rand.New(rand.NewSource(seed)),
		Logger: logger,
	}
}

// SampleRecord builds one raw value per column. Auto-increment columns are left out
// so the server assigns them.
func (dg *DataGenerator) SampleRecord(schema models.SchemaDescriptor) map[string]interface{} {
	record := make(map[string]interface{}, len(schema))
	for _, column := range schema {
		if strings.Contains(strings.ToLower(column.Extra), "auto_increment") {
			dg.Logger.Debugf("Skipping auto_increment column %s", column.Name)
			continue
		}
		record[column.Name] = dg.SampleValue(column)
	}
	return record
}

// SampleValue returns a raw value for a column. Numeric declared types win over
// column name hints so the rendered literal always matches the column.
func (dg *DataGenerator) SampleValue(column models.Column) interface{} {
	declared := strings.ToLower(column.Type)
	base := baseType(declared)

	switch {
	case base == "tinyint" && strings.HasPrefix(declared, "tinyint(1)"):
		return dg.Rand.Intn(2)
	case integerTypes[base]:
		return dg.integer(declared)
	case base == "float" || base == "double":
		return dg.Faker.Float64(2, 0, 1000)
	case base == "decimal" || base == "numeric":
		return strconv.FormatFloat(dg.Faker.Float64(2, 0, 1000), 'f', 2, 64)
	case base == "date":
		return dg.pastTime().Format("2006-01-02")
	case base == "datetime" || base == "timestamp":
		return dg.pastTime().Format("2006-01-02 15:04:05")
	case base == "time":
		return dg.pastTime().Format("15:04:05")
	case base == "year":
		return strconv.Itoa(dg.Faker.IntBetween(1970, time.Now().Year()))
	case base == "enum" || base == "set":
		return dg.option(column.Type)
	case base == "json":
		return `{"key":"` + dg.Faker.Lorem().Word() + `"}`
	}

	if value, ok := dg.byName(strings.ToLower(column.Name)); ok {
		return truncate(value, declared)
	}

	switch base {
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext":
		return dg.text(declared)
	default:
		dg.Logger.Warningf("No specific generator for type %s, using default string", column.Type)
		return dg.Faker.Lorem().Word()
	}
}

func (dg *DataGenerator) integer(declared string) int {
	switch baseType(declared) {
	case "tinyint":
		return dg.Faker.IntBetween(0, 127)
	case "smallint":
		return dg.Faker.IntBetween(0, 32767)
	default:
		return dg.Faker.IntBetween(1, 100000)
	}
}

func (dg *DataGenerator) pastTime() time.Time {
	days := dg.Rand.Intn(365 * 5)
	seconds := dg.Rand.Intn(24 * 60 * 60)
	return time.Now().AddDate(0, 0, -days).Add(-time.Duration(seconds) * time.Second)
}

func (dg *DataGenerator) option(declared string) string {
	matches := optionPattern.FindAllStringSubmatch(declared, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[dg.Rand.Intn(len(matches))][1]
}

func (dg *DataGenerator) byName(name string) (string, bool) {
	switch {
	case strings.Contains(name, "email"):
		return dg.Faker.Internet().Email(), true
	case strings.Contains(name, "name") && !strings.Contains(name, "file"):
		switch {
		case strings.Contains(name, "first"):
			return dg.Faker.Person().FirstName(), true
		case strings.Contains(name, "last"):
			return dg.Faker.Person().LastName(), true
		case strings.Contains(name, "user"):
			return dg.Faker.Internet().User(), true
		case strings.Contains(name, "company"):
			return dg.Faker.Company().Name(), true
		default:
			return dg.Faker.Person().Name(), true
		}
	case strings.Contains(name, "phone"):
		return dg.Faker.Phone().Number(), true
	case strings.Contains(name, "address"):
		return dg.Faker.Address().StreetAddress(), true
	case strings.Contains(name, "city"):
		return dg.Faker.Address().City(), true
	case strings.Contains(name, "state"):
		return dg.Faker.Address().State(), true
	case strings.Contains(name, "country"):
		return dg.Faker.Address().Country(), true
	case strings.Contains(name, "zip") || strings.Contains(name, "postal"):
		return dg.Faker.Address().PostCode(), true
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return dg.Faker.Internet().URL(), true
	case strings.Contains(name, "title"):
		return dg.Faker.Lorem().Sentence(4), true
	case strings.Contains(name, "description") || strings.Contains(name, "summary"):
		return dg.Faker.Lorem().Paragraph(2), true
	case strings.Contains(name, "uuid"):
		return dg.Faker.UUID().V4(), true
	}
	return "", false
}

func (dg *DataGenerator) text(declared string) string {
	limit := declaredLength(declared)
	var value string
	switch {
	case limit <= 5:
		value = dg.Faker.RandomStringWithLength(limit)
	case limit <= 20:
		value = dg.Faker.Lorem().Word()
	default:
		value = dg.Faker.Lorem().Sentence(4)
	}
	return truncate(value, declared)
}

// declaredLength reads the (n) of a character type, 100 when absent
func declaredLength(declared string) int {
	if m := lengthPattern.FindStringSubmatch(declared); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 100
}

func truncate(value, declared string) string {
	limit := declaredLength(declared)
	if len(value) > limit {
		return value[:limit]
	}
	return value
}

func baseType(declared string) string {
	declared = strings.TrimSpace(declared)
	if i := strings.IndexAny(declared, "( "); i >= 0 {
		return declared[:i]
	}
	return declared
}
