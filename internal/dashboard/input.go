package dashboard

const (
	linkedEntitiesKey    = "linkedEntities"
	linkedEntityGuidsKey = "linkedEntityGuids"
)

// ToInput converts a fetched dashboard into the shape accepted by the
// dashboardUpdate mutation. Entities query widgets expose linkedEntities as
// a list of {guid} objects while DashboardInput takes linkedEntityGuids as a
// plain list, so each widget is rewritten accordingly.
func ToInput(doc Document) (Document, error) {
	out := Clone(doc)
	err := walkWidgets(out, func(widget map[string]any, path string) error {
		linked, err := listAt(widget, linkedEntitiesKey, path+"."+linkedEntitiesKey)
		if err != nil {
			return err
		}

		if v, ok := widget[linkedEntitiesKey]; ok && v != nil {
			guids := make([]any, 0, len(linked))
			for _, e := range linked {
				entity, ok := e.(map[string]any)
				if !ok {
					return &MutationError{Path: path + "." + linkedEntitiesKey, Reason: describe("object", e)}
				}
				if guid, ok := entity["guid"]; ok {
					guids = append(guids, guid)
				}
			}
			widget[linkedEntityGuidsKey] = guids
		}

		delete(widget, linkedEntitiesKey)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
