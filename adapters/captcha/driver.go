package captcha

import (
	"fmt"
	"image/color"

	"github.com/layer-3/tagdesk/ports"
	"github.com/mojocn/base64Captcha"
)

// source omits glyphs that are easy to confuse (0/O, 1/l/I).
const source = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Length int
	Noise  int
}

// DefaultOptions renders a 4 character challenge.
func DefaultOptions() Options {
	return Options{Width: 150, Height: 50, Length: 4, Noise: 2}
}

// Driver renders string captchas with base64Captcha.
type Driver struct {
	driver *base64Captcha.DriverString
}

// NewDriver creates a Driver.
func NewDriver(opts Options) *Driver {
	d := &base64Captcha.DriverString{
		Height:          opts.Height,
		Width:           opts.Width,
		NoiseCount:      opts.Noise,
		ShowLineOptions: base64Captcha.OptionShowHollowLine,
		Length:          opts.Length,
		Source:          source,
		BgColor:         &color.RGBA{R: 240, G: 240, B: 246, A: 255},
	}

	return &Driver{driver: d.ConvertFonts()}
}

// Generate returns the answer and a PNG data URI showing it.
func (d *Driver) Generate() (string, string, error) {
	_, question, answer := d.driver.GenerateIdQuestionAnswer()

	item, err := d.driver.DrawCaptcha(question)
	if err != nil {
		return "", "", fmt.Errorf("failed to draw captcha: %w", err)
	}

	return answer, item.EncodeB64string(), nil
}

var _ ports.CaptchaDriver = (*Driver)(nil)
