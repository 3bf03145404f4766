package dashboard

import "fmt"

const (
	rawConfigurationKey = "rawConfiguration"
	refreshRateKey      = "refreshRate"
	frequencyKey        = "frequency"
)

// ApplyRefreshRate returns a copy of doc in which every widget on every page
// has rawConfiguration.refreshRate.frequency set to refreshRateMs.
// Missing rawConfiguration or refreshRate objects are created; all other
// content is left untouched. doc itself is never modified.
func ApplyRefreshRate(doc Document, refreshRateMs int) (Document, error) {
	if refreshRateMs <= 0 {
		return nil, fmt.Errorf("refresh rate must be positive, got %d", refreshRateMs)
	}

	out := Clone(doc)
	err := walkWidgets(out, func(widget map[string]any, path string) error {
		rawPath := path + "." + rawConfigurationKey
		raw, err := objectAt(widget, rawConfigurationKey, rawPath)
		if err != nil {
			return err
		}
		rate, err := objectAt(raw, refreshRateKey, rawPath+"."+refreshRateKey)
		if err != nil {
			return err
		}
		rate[frequencyKey] = refreshRateMs
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// CountWidgets returns the number of widgets across all pages of doc.
func CountWidgets(doc Document) (int, error) {
	n := 0
	err := walkWidgets(doc, func(map[string]any, string) error {
		n++
		return nil
	})
	return n, err
}
