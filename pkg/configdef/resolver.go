package configdef

// EnvPrefix is prepended to every environment variable the values are
// read from.
const EnvPrefix = "MVFLOW_"

type Resolver interface {
	Resolve() (Values, error)
}
