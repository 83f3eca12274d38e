package entity

// Detection представляет метку, найденную классификатором на изображении.
type Detection struct {
	Label      string  // название класса, как его вернул классификатор
	Confidence float64 // уверенность в диапазоне [0, 1]
}
