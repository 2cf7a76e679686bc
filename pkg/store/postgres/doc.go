// Package postgres implements the identity, namespace and sharing storage
// interfaces on PostgreSQL via pgx.
//
// The uniqueness invariants live in the schema, not in application
// code: users(username), nodes(owner_id, parent_id, name) and
// share_grants(node_id, grantee_id) all carry unique indexes, and unique
// violations are translated back into the typed domain errors. Approving an
// access request updates the request row and inserts the grant inside one
// transaction.
//
// Schema migrations are plain goose SQL files under migrations/ and are
// applied with Migrate at startup.
package postgres
