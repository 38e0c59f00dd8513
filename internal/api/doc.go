// Package api serves the geogate HTTP protocol.
//
// Endpoints mirror the wire schema the mobile client speaks:
//
//	POST /login           credential check, issues a device session
//	POST /check-location  geofence check, returns the device id
//	POST /sha-check       client integrity check
//	POST /messages        device-authenticated message echo
//	POST /check-failed    client-side check failure report
//	GET  /list-files      entitlements for an authorized device
//	POST /get-file        file bytes, consuming one-time entitlements
//
// Every failed gate revokes the user's session through session.Manager.
// Legacy paths without the hyphen (/checklocation, /getfile, ...) are
// routed to the same handlers.
//
// The server follows the same lifecycle as the infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
