package configdef

import (
	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

const KindConfig = xerror.Kind("config")

type Values struct {
	VideoBackend string `env:"VIDEO_BACKEND" envDefault:"libav" validate:"one_of=libav,opencv,mock"`
	LoggingLevel string `env:"LOGGING_LEVEL" envDefault:"error" validate:"one_of=debug,info,warn,error"`
	StallLimit   int    `env:"STALL_LIMIT" envDefault:"64" validate:"gte=1"`
	StrictDecode bool   `env:"STRICT_DECODE"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return xerror.NewWithKind(KindConfig, err.Error())
	}
	return nil
}
