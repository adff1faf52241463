// ABOUTME: Exposes the legacy layout to external tests
// ABOUTME: Lets fixtures build a pre-versioning database without duplicating DDL

package migrate

// SchemaV1 is the DDL of an unversioned v1 database.
const SchemaV1 = schemaV1
