// Package regions maps the closed set of supported AWS regions to their
// wire names and S3 endpoint hosts.
package regions

import "fmt"

// Region identifies one of the supported AWS regions.
type Region int

const (
	USEast1 Region = iota
	USWest1
	USWest2
	EUWest1
	EUCentral1
	APSoutheast1
	APSoutheast2
	APNortheast1
	SAEast1
)

// ParseError reports an unsupported region string.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("regions: unsupported region %q", e.Input)
}

// String returns the canonical wire name, e.g. "us-east-1".
// Adding a region requires updating String, Parse and EndpointHost together;
// the round-trip test catches a missed direction.
func (r Region) String() string {
	switch r {
	case USEast1:
		return "us-east-1"
	case USWest1:
		return "us-west-1"
	case USWest2:
		return "us-west-2"
	case EUWest1:
		return "eu-west-1"
	case EUCentral1:
		return "eu-central-1"
	case APSoutheast1:
		return "ap-southeast-1"
	case APSoutheast2:
		return "ap-southeast-2"
	case APNortheast1:
		return "ap-northeast-1"
	case SAEast1:
		return "sa-east-1"
	}
	return fmt.Sprintf("regions: unknown(%d)", int(r))
}

// Parse is the inverse of String. Unsupported strings are a hard error,
// never a default region.
func Parse(s string) (Region, error) {
	switch s {
	case "us-east-1":
		return USEast1, nil
	case "us-west-1":
		return USWest1, nil
	case "us-west-2":
		return USWest2, nil
	case "eu-west-1":
		return EUWest1, nil
	case "eu-central-1":
		return EUCentral1, nil
	case "ap-southeast-1":
		return APSoutheast1, nil
	case "ap-southeast-2":
		return APSoutheast2, nil
	case "ap-northeast-1":
		return APNortheast1, nil
	case "sa-east-1":
		return SAEast1, nil
	}
	return 0, &ParseError{Input: s}
}

// EndpointHost returns the regional S3 endpoint host.
func (r Region) EndpointHost() string {
	if r == USEast1 {
		return "s3.amazonaws.com"
	}
	return "s3-" + r.String() + ".amazonaws.com"
}

// All lists every supported region, in declaration order.
func All() []Region {
	return []Region{
		USEast1, USWest1, USWest2,
		EUWest1, EUCentral1,
		APSoutheast1, APSoutheast2, APNortheast1,
		SAEast1,
	}
}
