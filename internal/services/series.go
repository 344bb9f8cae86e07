package services

import (
	"fmt"
	"time"

	"github.com/statlens/statlens/internal/analytics"
	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/utils"
)

const dayLayout = "2006-01-02"

// ExtractSeries pulls one metric column out of a dataset's records, in record
// order. Records whose value is missing, non-numeric or not finite are skipped.
//
// The date of an observation is the record timestamp's day, else the value of
// the dataset's time column ("date" when unset), else the day the record was created.
func ExtractSeries(dataset *models.Dataset, records []models.Record, metric string) analytics.Series {
	timeColumn := dataset.TimeColumn
	if timeColumn == "" {
		timeColumn = "date"
	}

	series := make(analytics.Series, 0, len(records))
	for _, record := range records {
		value, ok := utils.ToFiniteFloat64(record.Data[metric])
		if !ok {
			continue
		}
		series = append(series, analytics.Observation{
			Date:  recordDate(record, timeColumn),
			Value: value,
		})
	}
	return series
}

func recordDate(record models.Record, timeColumn string) string {
	if record.Timestamp != nil && !record.Timestamp.IsZero() {
		return record.Timestamp.UTC().Format(dayLayout)
	}

	switch v := record.Data[timeColumn].(type) {
	case nil:
	case string:
		if v != "" {
			return v
		}
	case time.Time:
		return v.UTC().Format(dayLayout)
	default:
		return fmt.Sprint(v)
	}

	return record.CreatedAt.UTC().Format(dayLayout)
}
