package jira

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seaward/assetctl/errors"
)

func seedLaptop(f *fakeAssets, id string) {
	f.addLaptop(id, map[string][]map[string]interface{}{
		attrName:         {fv("MacBook Pro - S" + id)},
		attrModel:        {fv("MacBook Pro")},
		attrSerial:       {fv("S" + id)},
		attrPurchaseDate: {fv("2023-06-15")},
		attrPurchaseCost: {fv("2000")},
	})
}

func TestGetObjectMaterializesTypedValues(t *testing.T) {
	fake := newFakeAssets(t)
	seedLaptop(fake, "101")
	client := fake.client(t, nil)

	asset, err := client.GetObject(context.Background(), "101")
	require.NoError(t, err)

	assert.Equal(t, "101", asset.ID)
	assert.Equal(t, "Laptops", asset.TypeName)
	assert.Equal(t, "MacBook Pro", asset.Attribute("Model").String())

	cost, ok := asset.Attribute("Purchase Cost").AsNumber()
	require.True(t, ok)
	assert.Equal(t, "2000", cost.String())

	date, ok := asset.Attribute("Purchase Date").AsDate()
	require.True(t, ok)
	assert.Equal(t, "2023-06-15", date.Format(DateLayout))

	assert.True(t, asset.Attribute("Buyout Price").IsNull())
}

func TestGetObjectExtractsReferenceAndStatusNames(t *testing.T) {
	fake := newFakeAssets(t)
	fake.addLaptop("102", map[string][]map[string]interface{}{
		attrStatus: {{
			"status": map[string]interface{}{"id": "3", "name": "In Service"},
		}},
		attrLocation: {{
			"referencedObject": map[string]interface{}{"id": "77", "name": "Berlin Office"},
			"displayValue":     "77",
		}},
	})
	client := fake.client(t, nil)

	asset, err := client.GetObject(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, "In Service", asset.Attribute("Status").String())
	assert.Equal(t, "Berlin Office", asset.Attribute("Location").String(),
		"referenced object name wins over displayValue")
}

func TestGetObjectUnresolvableAttributeKeepsSyntheticName(t *testing.T) {
	fake := newFakeAssets(t)
	fake.addLaptop("103", map[string][]map[string]interface{}{
		attrModel: {fv("ThinkPad")},
		"9999":    {fv("mystery")},
	})
	client := fake.client(t, nil)

	asset, err := client.GetObject(context.Background(), "103")
	require.NoError(t, err)
	assert.Equal(t, "mystery", asset.Attribute("attr:9999").String())
}

func TestGetObjectNotFound(t *testing.T) {
	fake := newFakeAssets(t)
	client := fake.client(t, nil)

	_, err := client.GetObject(context.Background(), "404404")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGetObjectRejectsForeignSchema(t *testing.T) {
	fake := newFakeAssets(t)
	obj := fake.addLaptop("201", map[string][]map[string]interface{}{
		attrModel: {fv("Desk")},
	})
	obj.SchemaID = "9"
	client := fake.client(t, nil)

	_, err := client.GetObject(context.Background(), "201")
	require.Error(t, err)
	assert.True(t, errors.IsSchemaError(err))
}

func TestGetObjectsIsolatesFailuresInOrder(t *testing.T) {
	fake := newFakeAssets(t)
	for _, id := range []string{"301", "302", "303", "304", "305"} {
		seedLaptop(fake, id)
	}
	client := fake.client(t, nil)

	ids := []string{"301", "302", "999", "303", "304", "305"}
	results := client.GetObjects(context.Background(), ids)
	require.Len(t, results, len(ids))

	for i, r := range results {
		assert.Equal(t, ids[i], r.ID, "results keep input order")
	}
	for _, i := range []int{0, 1, 3, 4, 5} {
		require.NoError(t, results[i].Err)
		assert.Equal(t, ids[i], results[i].Asset.ID)
	}
	require.Error(t, results[2].Err)
	assert.True(t, errors.IsNotFoundError(results[2].Err))
	assert.Nil(t, results[2].Asset)
}

func TestGetObjectsAbortsOnAuthFailure(t *testing.T) {
	fake := newFakeAssets(t)
	seedLaptop(fake, "311")
	seedLaptop(fake, "312")
	client := fake.client(t, nil)

	results := client.GetObjects(context.Background(), []string{"311", "locked", "312"})
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.True(t, errors.IsAuthError(results[1].Err))
	assert.True(t, errors.IsAuthError(results[2].Err), "remaining IDs inherit the fatal error")
	assert.Equal(t, 0, fake.callCount("GET object/312"), "no further requests after an auth failure")
}

func TestQueryIteratorPagesTransparently(t *testing.T) {
	fake := newFakeAssets(t)
	for i := 0; i < 7; i++ {
		seedLaptop(fake, fmt.Sprintf("40%d", i))
	}
	client := fake.client(t, nil)

	it := client.Query(context.Background(), `objectType = "Laptops"`, 3)
	var ids []string
	for it.Next() {
		ids = append(ids, it.Asset().ID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"400", "401", "402", "403", "404", "405", "406"}, ids)
	assert.Equal(t, 3, fake.callCount("POST object/aql"), "7 results at page size 3")
}

func TestQueryIteratorRestarts(t *testing.T) {
	fake := newFakeAssets(t)
	seedLaptop(fake, "501")
	seedLaptop(fake, "502")
	client := fake.client(t, nil)

	it := client.Query(context.Background(), "", 10)
	count := 0
	for it.Next() {
		count++
	}
	require.NoError(t, it.Err())
	require.Equal(t, 2, count)

	it.Restart()
	count = 0
	for it.Next() {
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 2, count)
}

func TestQueryInvalidFilterFailsFast(t *testing.T) {
	fake := newFakeAssets(t)
	seedLaptop(fake, "601")
	client := fake.client(t, nil)

	it := client.Query(context.Background(), "syntax-error ===", 10)
	assert.False(t, it.Next())
	require.Error(t, it.Err())
	assert.True(t, errors.Is(it.Err(), errors.ErrInvalidQuery))
}

func TestConstrainQueryScopesToSchema(t *testing.T) {
	fake := newFakeAssets(t)
	client := fake.client(t, nil)
	ctx := context.Background()

	got, err := client.constrainQuery(ctx, `objectType = "Laptops"`)
	require.NoError(t, err)
	assert.Equal(t, `(objectType = "Laptops") AND objectSchemaId = 7`, got)

	got, err = client.constrainQuery(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "objectSchemaId = 7", got)

	got, err = client.constrainQuery(ctx, "objectSchemaId = 9")
	require.NoError(t, err)
	assert.Equal(t, "objectSchemaId = 9", got, "an explicit schema is left alone")
}
