package ports

// CaptchaDriver produces a challenge answer together with its rendered image.
type CaptchaDriver interface {
	Generate() (answer string, image string, err error)
}
