package e2e_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/MedRecord-NER/pkg/client"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// findEntity returns the first entity with the given tag.
func findEntity(t *testing.T, entities []client.Entity, tag string) client.Entity {
	t.Helper()
	for _, e := range entities {
		if e.Tag == tag {
			return e
		}
	}
	t.Fatalf("no %s entity in %+v", tag, entities)
	return client.Entity{}
}

// requireAPIError asserts err is an APIError with the given status.
func requireAPIError(t *testing.T, err error, status int) *client.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := client.IsAPIError(err)
	require.True(t, ok, "expected APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}

//Personal.AI order the ending
