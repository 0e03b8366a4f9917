// Package authkit bundles the persistence and request glue shared by admin
// style web applications built on fiber and bun.
//
// Auditing:
//   - The authenticated principal travels in the request context.Context
//     (WithAuthentication). AuditorAware resolves it into an auditor name and
//     models stamp created_by/updated_by from it when they are written.
//
// Entities:
//   - LoginRole and UserLogin are bun models served by a generic
//     CrudRepository/CrudService pair plus entity specific finders. Missing
//     rows are reported as absence (found == false), never as failures.
//   - UserLogin lock state changes run inside a single transaction and record
//     who locked the account.
//
// Transport:
//   - NewApp builds a fiber app whose ErrorHandler maps go-errors codes to
//     HTTP statuses, so NewNotFound surfaces as 404.
//   - Mail retrieval, message publishing and form conversion live in the
//     mail, messaging and binding subpackages.
package authkit
