package canopy

// Version is the release of the canopy module and CLI.
const Version = "0.4.0"
