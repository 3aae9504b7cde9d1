package opensky

// State vector column indices in the upstream "states" rows.
// Rows are positional arrays; see the OpenSky REST API documentation for the full layout.
const (
	ColICAO24        = 0  // string, 24-bit transponder address in hex
	ColCallsign      = 1  // string, may be null or padded with spaces
	ColOriginCountry = 2  // string
	ColTimePosition  = 3  // int, unix seconds of last position update
	ColLastContact   = 4  // int, unix seconds of last message
	ColLongitude     = 5  // float, WGS-84 degrees
	ColLatitude      = 6  // float, WGS-84 degrees
	ColBaroAltitude  = 7  // float, meters
	ColOnGround      = 8  // bool
	ColVelocity      = 9  // float, m/s over ground
	ColTrueTrack     = 10 // float, degrees clockwise from north

	// MinRowLen is the shortest row that carries every mapped column
	MinRowLen = ColVelocity + 1
)
