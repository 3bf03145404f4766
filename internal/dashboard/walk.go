package dashboard

import "fmt"

// MutationError reports a document whose structure does not match the
// pages/widgets shape expected at Path.
type MutationError struct {
	Path   string
	Reason string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("invalid dashboard document at %s: %s", e.Path, e.Reason)
}

// widgetFunc is called once per widget with its location in the document.
type widgetFunc func(widget map[string]any, path string) error

// walkWidgets visits every widget of every page in document order. A missing
// or null "pages" or "widgets" key means there is nothing to visit; any other
// non-list or non-object value is a MutationError.
func walkWidgets(doc Document, fn widgetFunc) error {
	pages, err := listAt(doc, "pages", "pages")
	if err != nil {
		return err
	}

	for i, p := range pages {
		pagePath := fmt.Sprintf("pages[%d]", i)
		page, ok := p.(map[string]any)
		if !ok {
			return &MutationError{Path: pagePath, Reason: describe("object", p)}
		}

		widgets, err := listAt(page, "widgets", pagePath+".widgets")
		if err != nil {
			return err
		}

		for j, w := range widgets {
			widgetPath := fmt.Sprintf("%s.widgets[%d]", pagePath, j)
			widget, ok := w.(map[string]any)
			if !ok {
				return &MutationError{Path: widgetPath, Reason: describe("object", w)}
			}
			if err := fn(widget, widgetPath); err != nil {
				return err
			}
		}
	}

	return nil
}

func listAt(m map[string]any, key, path string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &MutationError{Path: path, Reason: describe("list", v)}
	}
	return list, nil
}

// objectAt returns m[key] as an object, creating it when absent or null.
func objectAt(m map[string]any, key, path string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		obj := map[string]any{}
		m[key] = obj
		return obj, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &MutationError{Path: path, Reason: describe("object", v)}
	}
	return obj, nil
}

func describe(want string, got any) string {
	return fmt.Sprintf("expected %s, got %T", want, got)
}
