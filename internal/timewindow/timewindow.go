// Package timewindow разбирает промежутки вида HH:MM-HH:MM и проверяет их пересечение.
package timewindow

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/kesha1225/CandyDeliveryAppApi/internal/model"
)

var periodRe = regexp.MustCompile(`^(\d\d):(\d\d)-(\d\d):(\d\d)$`)

// Parse разбирает строку HH:MM-HH:MM в промежуток в секундах от начала суток.
func Parse(raw string) (model.Interval, error) {
	m := periodRe.FindStringSubmatch(raw)
	if m == nil {
		return model.Interval{}, fmt.Errorf("%w: %q", model.ErrInvalidTimeFormat, raw)
	}

	var parts [4]int
	for i := range parts {
		// две цифры, ошибки быть не может
		parts[i], _ = strconv.Atoi(m[i+1])
	}

	if parts[0] > 23 || parts[2] > 23 || parts[1] > 59 || parts[3] > 59 {
		return model.Interval{}, fmt.Errorf("%w: %q", model.ErrInvalidTimeFormat, raw)
	}

	return model.Interval{
		FirstTime:  parts[0]*3600 + parts[1]*60,
		SecondTime: parts[2]*3600 + parts[3]*60,
	}, nil
}

// ParseAll разбирает список промежутков, сохраняя порядок.
func ParseAll(raw []string) ([]model.Interval, error) {
	res := make([]model.Interval, 0, len(raw))
	for _, r := range raw {
		iv, err := Parse(r)
		if err != nil {
			return nil, err
		}
		res = append(res, iv)
	}
	return res, nil
}

// Overlaps сообщает, пересекаются ли промежутки. Касание концами пересечением не считается.
func Overlaps(a, b model.Interval) bool {
	latestStart := max(a.FirstTime, b.FirstTime)
	earliestEnd := min(a.SecondTime, b.SecondTime)
	return latestStart < earliestEnd
}

// AnyOverlap сообщает, пересекается ли хотя бы один промежуток заказа с хотя бы одним промежутком курьера.
func AnyOverlap(order, courier []model.Interval) bool {
	for _, o := range order {
		for _, c := range courier {
			if Overlaps(o, c) {
				return true
			}
		}
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp разбирает метку времени ISO 8601. Метка без часового пояса считается UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidTimeFormat, raw)
}
