package config

// BuiltinTemplates returns the default AgentTemplate seed set used to boot a
// TemplateRegistry when no operator-supplied templates are configured.
// Template ids here are the ones DetermineRequiredTemplates' static mapping
// table (pkg/poolmaker) refers to.
func BuiltinTemplates() []*AgentTemplate {
	return []*AgentTemplate{
		{
			TemplateID:           "python_backend",
			DisplayName:          "Python Backend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechPythonFastAPI},
			Responsibilities:     []string{"implement API endpoints", "wire business logic"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"language": "python"},
		},
		{
			TemplateID:           "node_backend",
			DisplayName:          "Node Backend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechNodeExpress},
			Responsibilities:     []string{"implement API endpoints", "wire business logic"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"language": "javascript"},
		},
		{
			TemplateID:           "go_backend",
			DisplayName:          "Go Backend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechGo},
			Responsibilities:     []string{"implement API endpoints", "wire business logic"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"language": "go"},
		},
		{
			TemplateID:           "react_frontend",
			DisplayName:          "React Frontend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechReact},
			Responsibilities:     []string{"build UI components", "wire API clients"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"framework": "react"},
		},
		{
			TemplateID:           "vue_frontend",
			DisplayName:          "Vue Frontend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechVue},
			Responsibilities:     []string{"build UI components", "wire API clients"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"framework": "vue"},
		},
		{
			TemplateID:           "angular_frontend",
			DisplayName:          "Angular Frontend Developer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechAngular},
			Responsibilities:     []string{"build UI components", "wire API clients"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"framework": "angular"},
		},
		{
			TemplateID:           "database_postgres",
			DisplayName:          "PostgreSQL Database Engineer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechDatabasePostgre},
			Responsibilities:     []string{"design schema", "write migrations"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"engine": "postgres"},
		},
		{
			TemplateID:           "database_mysql",
			DisplayName:          "MySQL Database Engineer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechDatabaseMySQL},
			Responsibilities:     []string{"design schema", "write migrations"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"engine": "mysql"},
		},
		{
			TemplateID:           "database_mongo",
			DisplayName:          "MongoDB Database Engineer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechDatabaseMongo},
			Responsibilities:     []string{"design collections", "write indexes"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{"engine": "mongo"},
		},
		{
			TemplateID:           "devops_engineer",
			DisplayName:          "DevOps Engineer",
			Kind:                 KindCode,
			RequiredTechnologies: []Technology{TechDocker},
			Responsibilities:     []string{"author Dockerfiles", "wire CI/CD"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{},
		},
		{
			TemplateID:           "qa_engineer",
			DisplayName:          "QA Engineer",
			Kind:                 KindAnalysis,
			RequiredTechnologies: nil,
			Responsibilities:     []string{"write test plans", "author test suites"},
			ToolIDs:              []string{"shell", "editor"},
			DefaultConfig:        map[string]interface{}{},
		},
		{
			TemplateID:           "technical_writer",
			DisplayName:          "Technical Writer",
			Kind:                 KindDocumentation,
			RequiredTechnologies: nil,
			Responsibilities:     []string{"author README and API docs"},
			ToolIDs:              []string{"editor"},
			DefaultConfig:        map[string]interface{}{},
		},
	}
}
