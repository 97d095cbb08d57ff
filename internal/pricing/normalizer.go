// Package pricing приводит «сырые» цены с витрины к строке для отображения
// и числу для расчётов.
package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Price: результат нормализации цены.
type Price struct {
	Display string
	Numeric float64
}

// numberPattern находит первое целое или десятичное число; разделитель: точка или запятая.
var numberPattern = regexp.MustCompile(`\d+([,.]\d+)?`)

// Normalize приводит цену (число или строку) к Price. Никогда не паникует:
// всё, что не удалось разобрать, превращается в Numeric = 0.
func Normalize(price any) Price {
	switch v := price.(type) {
	case nil:
		return Price{}
	case string:
		return NormalizeString(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return NormalizeNumber(f)
		}
		return NormalizeString(v.String())
	case float64:
		return NormalizeNumber(v)
	case float32:
		return normalizeFormatted(float64(v), strconv.FormatFloat(float64(v), 'f', -1, 32))
	case int:
		return normalizeFormatted(float64(v), strconv.Itoa(v))
	case int32:
		return normalizeFormatted(float64(v), strconv.FormatInt(int64(v), 10))
	case int64:
		return normalizeFormatted(float64(v), strconv.FormatInt(v, 10))
	case uint:
		return normalizeFormatted(float64(v), strconv.FormatUint(uint64(v), 10))
	case uint32:
		return normalizeFormatted(float64(v), strconv.FormatUint(uint64(v), 10))
	case uint64:
		return normalizeFormatted(float64(v), strconv.FormatUint(v, 10))
	case fmt.Stringer:
		return NormalizeString(v.String())
	default:
		return Price{Display: strings.TrimSpace(fmt.Sprint(v))}
	}
}

// NormalizeNumber использует число как есть; отображение: кратчайшая десятичная запись.
func NormalizeNumber(v float64) Price {
	return normalizeFormatted(v, strconv.FormatFloat(v, 'f', -1, 64))
}

// NormalizeString извлекает первое число из строки; строка для отображения
// сохраняется как есть, без пробелов по краям.
func NormalizeString(raw string) Price {
	display := strings.TrimSpace(raw)

	match := numberPattern.FindString(raw)
	if match == "" {
		return Price{Display: display}
	}

	numeric, err := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	if err != nil {
		numeric = 0
	}

	return Price{Display: display, Numeric: sanitize(numeric)}
}

func normalizeFormatted(v float64, display string) Price {
	return Price{Display: display, Numeric: sanitize(v)}
}

// sanitize гарантирует конечное неотрицательное значение.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
