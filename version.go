package galois

// Version is the interpreter release stamped into the CLI banner.
const Version = "0.3.1"
