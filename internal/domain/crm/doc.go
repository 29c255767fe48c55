// Package crm contains the CRM gateway bounded context.
//
// Key concepts:
//   - Record: a field map exchanged with the remote CRM platform
//   - RecordGateway: port for query/create/update against the platform
//   - Schema: required-field and picklist validation run before any remote call
//   - ResolveMatch: in-process disambiguation the query language cannot express
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - The Salesforce adapter lives in infrastructure/salesforce
package crm
