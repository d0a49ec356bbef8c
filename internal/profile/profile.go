package profile

// Profile is the on-disk candidate document. Field names follow the YAML
// document users edit by hand, which uses Spanish keys.
type Profile struct {
	Personal   Personal     `yaml:"personal" json:"personal"`
	Education  []Education  `yaml:"educacion" json:"educacion"`
	Experience []Experience `yaml:"experiencia" json:"experiencia"`
	Languages  []Language   `yaml:"idiomas" json:"idiomas"`
	Skills     Skills       `yaml:"habilidades" json:"habilidades"`
}

type Personal struct {
	Nombre    string `yaml:"nombre" json:"nombre"`
	Apellidos string `yaml:"apellidos" json:"apellidos"`
	Email     string `yaml:"email" json:"email"`
	Telefono  string `yaml:"telefono" json:"telefono"`
	Ciudad    string `yaml:"ciudad,omitempty" json:"ciudad,omitempty"`
	LinkedIn  string `yaml:"linkedin,omitempty" json:"linkedin,omitempty"`
	Web       string `yaml:"web,omitempty" json:"web,omitempty"`
	Resumen   string `yaml:"resumen,omitempty" json:"resumen,omitempty"`
}

type Education struct {
	Titulo      string `yaml:"titulo" json:"titulo"`
	Institucion string `yaml:"institucion" json:"institucion"`
	Inicio      string `yaml:"inicio,omitempty" json:"inicio,omitempty"`
	Fin         string `yaml:"fin,omitempty" json:"fin,omitempty"`
}

type Experience struct {
	Puesto            string   `yaml:"puesto" json:"puesto"`
	Empresa           string   `yaml:"empresa" json:"empresa"`
	Ubicacion         string   `yaml:"ubicacion,omitempty" json:"ubicacion,omitempty"`
	Inicio            string   `yaml:"inicio,omitempty" json:"inicio,omitempty"`
	Fin               string   `yaml:"fin,omitempty" json:"fin,omitempty"`
	Responsabilidades []string `yaml:"responsabilidades" json:"responsabilidades"`
	Logros            []string `yaml:"logros,omitempty" json:"logros,omitempty"`
}

type Language struct {
	Idioma string `yaml:"idioma" json:"idioma"`
	Nivel  string `yaml:"nivel" json:"nivel"`
}

type Skills struct {
	Tecnicas []string `yaml:"tecnicas,omitempty" json:"tecnicas,omitempty"`
	Blandas  []string `yaml:"blandas,omitempty" json:"blandas,omitempty"`
}

// Issue is a single validation finding. Field is a dotted path into the
// document ("experiencia[1].puesto").
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
