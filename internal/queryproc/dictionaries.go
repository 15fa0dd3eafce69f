package queryproc

// defaultCorrections maps common documentation-domain misspellings to their
// intended terms.
var defaultCorrections = map[string]string{
	"confleunce":        "confluence",
	"conflunce":         "confluence",
	"confleuence":       "confluence",
	"confuence":         "confluence",
	"confulence":        "confluence",
	"authentification":  "authentication",
	"authetication":     "authentication",
	"athentication":     "authentication",
	"authnetication":    "authentication",
	"authorisation":     "authorization",
	"authorazation":     "authorization",
	"configration":      "configuration",
	"configuraiton":     "configuration",
	"configuraion":      "configuration",
	"documnetation":     "documentation",
	"documenation":      "documentation",
	"documentaion":      "documentation",
	"enviroment":        "environment",
	"enviornment":       "environment",
	"enviorment":        "environment",
	"intergration":      "integration",
	"integartion":       "integration",
	"implmentation":     "implementation",
	"implementaiton":    "implementation",
	"respository":       "repository",
	"repositroy":        "repository",
	"repostitory":       "repository",
	"permisson":         "permission",
	"permisions":        "permissions",
	"paramter":          "parameter",
	"paramaters":        "parameters",
	"databse":           "database",
	"datbase":           "database",
	"endpint":           "endpoint",
	"endpoitn":          "endpoint",
	"sever":             "server",
	"servre":            "server",
	"mangement":         "management",
	"managment":         "management",
	"deployement":       "deployment",
	"deploment":         "deployment",
	"instllation":       "installation",
	"instalation":       "installation",
	"accses":            "access",
	"acess":             "access",
	"acces":             "access",
	"requst":            "request",
	"requets":           "request",
	"respone":           "response",
	"reponse":           "response",
	"serach":            "search",
	"seach":             "search",
	"qurey":             "query",
	"qeury":             "query",
	"scirpt":            "script",
	"scrpt":             "script",
}

// defaultExpansions maps trigger terms to related terms worth adding for
// recall.
var defaultExpansions = map[string][]string{
	"api":        {"REST", "endpoint"},
	"auth":       {"authentication", "login", "SSO"},
	"setup":      {"configure", "install"},
	"install":    {"setup", "configure"},
	"error":      {"issue", "problem", "fix"},
	"fix":        {"resolve", "solution"},
	"how to":     {"guide", "steps"},
	"permission": {"access", "role"},
	"deploy":     {"release", "publish"},
	"connect":    {"integrate", "link"},
	"create":     {"add", "new"},
	"delete":     {"remove"},
	"update":     {"edit", "modify"},
	"get":        {"retrieve", "fetch"},
	"list":       {"show", "display"},
}
