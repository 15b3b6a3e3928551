package types

// Version is the canonical project version.
// The CLI, frame layout and event payloads share this version.
const Version = "0.4.0"

// ContractVersion is stamped on published transfer events.
// Lockstep with Version.
const ContractVersion = Version
