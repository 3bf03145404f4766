package nerdgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AD7six/chart-refresh-updater/internal/dashboard"
)

const getDashboardQuery = `query($guid: EntityGuid!) {
  actor {
    entity(guid: $guid) {
      ... on DashboardEntity {
        name
        description
        permissions
        pages {
          guid
          name
          description
          widgets {
            id
            title
            layout { column row width height }
            linkedEntities { guid }
            rawConfiguration
            visualization { id }
          }
        }
        variables {
          name
          title
          type
          isMultiSelection
          replacementStrategy
          defaultValues { value { string } }
          items { title value }
          nrqlQuery { accountIds query }
          options { excluded ignoreTimeRange showApplyAction }
        }
      }
    }
  }
}`

const updateDashboardMutation = `mutation($guid: EntityGuid!, $dashboard: DashboardInput!) {
  dashboardUpdate(guid: $guid, dashboard: $dashboard) {
    errors {
      description
      type
    }
  }
}`

// Fetch returns the definition of the dashboard with the given GUID exactly
// as NerdGraph reports it.
func (c *Client) Fetch(ctx context.Context, guid string) (dashboard.Document, error) {
	var data struct {
		Actor *struct {
			Entity json.RawMessage `json:"entity"`
		} `json:"actor"`
	}

	req := graphQLRequest{Query: getDashboardQuery, Variables: map[string]any{"guid": guid}}
	if err := c.do(ctx, "fetch", guid, req, &data); err != nil {
		return nil, err
	}

	if data.Actor == nil {
		return nil, &RemoteError{Op: "fetch", GUID: guid, Err: fmt.Errorf("malformed response: missing actor")}
	}
	if isNull(data.Actor.Entity) {
		return nil, &RemoteError{Op: "fetch", GUID: guid, Err: ErrNotFound}
	}

	doc, err := dashboard.Decode(data.Actor.Entity)
	if err != nil {
		return nil, &RemoteError{Op: "fetch", GUID: guid, Err: fmt.Errorf("malformed entity: %w", err)}
	}
	// The DashboardEntity fragment selects nothing for other entity types
	if len(doc) == 0 {
		return nil, &RemoteError{Op: "fetch", GUID: guid, Err: fmt.Errorf("%w: entity is not a dashboard", ErrNotFound)}
	}
	return doc, nil
}

// Persist replaces the dashboard with input, which must already be in
// DashboardInput form (see dashboard.ToInput).
func (c *Client) Persist(ctx context.Context, guid string, input dashboard.Document) error {
	var data struct {
		DashboardUpdate *struct {
			Errors []struct {
				Description string `json:"description"`
				Type        string `json:"type"`
			} `json:"errors"`
		} `json:"dashboardUpdate"`
	}

	req := graphQLRequest{
		Query:     updateDashboardMutation,
		Variables: map[string]any{"guid": guid, "dashboard": input},
	}
	if err := c.do(ctx, "persist", guid, req, &data); err != nil {
		return err
	}

	if data.DashboardUpdate == nil {
		return &RemoteError{Op: "persist", GUID: guid, Err: fmt.Errorf("malformed response: missing dashboardUpdate")}
	}
	if errs := data.DashboardUpdate.Errors; len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = fmt.Sprintf("%s (%s)", e.Description, e.Type)
		}
		return &RemoteError{Op: "persist", GUID: guid, Err: fmt.Errorf("update rejected: %s", strings.Join(msgs, ", "))}
	}
	return nil
}
