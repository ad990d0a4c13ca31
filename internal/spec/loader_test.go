package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalSpec = `
version: "1"
simulation_settings:
  duration: 10m
  random_seed: 42
schemas:
  user_payload:
    type: object
    properties:
      user_id:
        type: string
        generator: uuid_v4
      email:
        type: string
        generator: faker.email
entities:
  user:
    schema: "#/schemas/user_payload"
    primary_key: user_id
    state_attributes:
      status:
        type: string
        default: active
event_types:
  user_registered:
    payload_schema: "#/schemas/user_payload"
    produces_entity: user
outputs:
  - type: stdout
`

func TestLoad_Minimal(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", minimalSpec)

	doc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10m", doc.SimulationSettings.Duration)
	require.NotNil(t, doc.SimulationSettings.RandomSeed)
	assert.Equal(t, int64(42), *doc.SimulationSettings.RandomSeed)

	schema, ok := doc.SchemaByName("user_payload")
	require.True(t, ok)
	require.Len(t, schema.Properties, 2)
	assert.Equal(t, "user_id", schema.Properties[0].Name)
	assert.Equal(t, "email", schema.Properties[1].Name)

	ent, ok := doc.EntityByName("user")
	require.True(t, ok)
	assert.Equal(t, "user_payload", ent.Schema)
	assert.Equal(t, "user_id", ent.PrimaryKey)

	et, ok := doc.EventTypeByName("user_registered")
	require.True(t, ok)
	assert.Equal(t, "user_payload", et.PayloadSchema)
	assert.Equal(t, 1.0, et.EffectiveWeight())
}

func TestLoad_PropertyOrderPreserved(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "spec.yaml", `
schemas:
  ordered:
    type: object
    properties:
      zeta: {type: string, generator: uuid_v4}
      alpha: {type: integer}
      mid: {type: number}
outputs:
  - type: stdout
`)
	doc, err := LoadUnvalidated(path)
	require.NoError(t, err)

	schema, ok := doc.SchemaByName("ordered")
	require.True(t, ok)
	names := make([]string, 0, 3)
	for _, p := range schema.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestLoad_ImportMerge(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "base.yaml", `
schemas:
  user_payload:
    type: object
    properties:
      user_id: {type: string, generator: uuid_v4}
entities:
  user:
    schema: user_payload
    primary_key: user_id
`)
	main := writeSpec(t, dir, "main.yaml", `
imports:
  - base.yaml
simulation_settings:
  total_events: 5
schemas:
  user_payload:
    type: object
    properties:
      user_id: {type: string, generator: uuid_v4}
      plan: {type: string, generator: choice, params: {choices: [free, pro]}}
event_types:
  user_registered:
    payload_schema: user_payload
    produces_entity: user
outputs:
  - type: stdout
`)
	doc, err := Load(main)
	require.NoError(t, err)

	// The importing file's redefinition wins, in the imported position.
	schema, ok := doc.SchemaByName("user_payload")
	require.True(t, ok)
	assert.Len(t, schema.Properties, 2)

	_, ok = doc.EntityByName("user")
	assert.True(t, ok)
}

func TestLoad_CircularImport(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "a.yaml", "imports: [b.yaml]\n")
	writeSpec(t, dir, "b.yaml", "imports: [a.yaml]\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeCircularImport, le.Code)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeSpec(t, dir, "bad.yaml", "schemas: [\n")
	_, err := Load(path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeParse, le.Code)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("30m")
	require.NoError(t, err)
	assert.Equal(t, "30m0s", d.String())

	d, err = ParseDuration("2h")
	require.NoError(t, err)
	assert.Equal(t, "2h0m0s", d.String())

	for _, bad := range []string{"", "m", "10", "10d", "-5s", "1.5h"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}
