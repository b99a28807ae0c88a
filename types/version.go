package types

// Version is the canonical project version, shared by the Lambda
// function and the posters CLI.
const Version = "0.3.0"
