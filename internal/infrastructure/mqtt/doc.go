// Package mqtt publishes geogate security events to an MQTT broker.
//
// Every audited action (login, session revoke, rejected location or
// integrity check, file delivery) is mirrored to
// geogate/security/<action> so external monitoring can react without
// polling the audit table. The client also maintains a retained
// online/offline status on geogate/system/status via last will.
//
// Publishing is best-effort. Callers treat ErrNotConnected as a dropped
// event, never as a request failure.
package mqtt
