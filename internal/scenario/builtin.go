package scenario

// Built-in suite names.
const (
	SuiteDebugging    = "realistic_debugging"
	SuiteArchitecture = "architecture"
	SuiteSemantic     = "semantic"
	SuiteTemperature  = "temperature"
	SuiteMaxTokens    = "max_tokens"
	SuiteDemo         = "demo"
)

// ConcurrentQueries is the pool the concurrent phase draws from.
var ConcurrentQueries = []string{
	"How do I handle database transactions in Rust with SQLx?",
	"What's the best way to implement rate limiting in Actix-web?",
	"How to handle file uploads in Rust web applications?",
	"How do I implement WebSocket connections in Actix-web?",
	"What's the difference between .await and .block_on() in Rust?",
	"How to handle CORS properly in a Rust API?",
	"How do I implement pagination for database queries in Rust?",
	"What's the best way to cache responses in an Actix-web application?",
}

// MixedQueries is the repeating sequence of the mixed workload. Repeats and a
// paraphrase are interleaved with unique questions.
var MixedQueries = []string{
	"How do I handle errors in Rust without unwrap?",
	"How do I handle errors in Rust without unwrap?",
	"What's the best way to avoid unwrap in Rust error handling?",
	"How to implement async functions in Rust with Tokio?",
	"How to implement async functions in Rust with Tokio?",
	"How do I parse JSON in Rust using serde?",
	"What's the difference between String and &str in Rust?",
	"How to read files asynchronously in Rust?",
	"How do I create custom macros in Rust?",
	"What's the best way to handle configuration in Rust apps?",
}

// Builtins returns the standard suites in run order. The demo walk is separate;
// see Demo.
func Builtins() []Suite {
	return []Suite{
		debugging(),
		architecture(),
		semantic(),
		temperature(),
		maxTokens(),
	}
}

func debugging() Suite {
	return Suite{
		Name:  SuiteDebugging,
		Title: "Realistic Debugging Queries",
		Groups: []Group{{
			Scenario: SuiteDebugging,
			Steps: []Step{
				{Label: "borrow_error_1", Query: "I'm getting 'cannot borrow as mutable' error when trying to modify a vector inside a loop in Rust. How do I fix this?"},
				{Label: "borrow_error_2", Query: "Getting 'cannot borrow as mutable' in Rust loop with vector modification"},
				{Label: "panic_bounds", Query: "My Rust code panics with 'index out of bounds'. How do I safely access vector elements?"},
				{Label: "async_not_run", Query: "Why does my async Rust function not run? I'm using tokio but nothing happens."},
				{Label: "trait_bound", Query: "How do I fix 'trait bound not satisfied' error when trying to use HashMap with custom struct?"},
				{Label: "lifetime_error", Query: "Rust compiler says 'lifetime may not live long enough' in my function. What does this mean?"},
				{Label: "move_error", Query: "I get 'move occurs because value has type' error. How do I fix ownership issues in Rust?"},
				{Label: "actix_debug", Query: "My Actix-web server returns 500 error but I don't see any logs. How to debug?"},
				{Label: "perf_issue", Query: "Why is my Rust program so slow compared to Python? Am I doing something wrong?"},
				{Label: "error_handling", Query: "How do I properly handle errors in Rust without using unwrap everywhere?"},
			},
		}},
	}
}

func architecture() Suite {
	return Suite{
		Name:  SuiteArchitecture,
		Title: "Architecture & Implementation",
		Groups: []Group{{
			Scenario: SuiteArchitecture,
			Steps: []Step{
				{Label: "producer_consumer_1", Query: "How do I implement a thread-safe producer-consumer queue in Rust using channels and tokio?"},
				{Label: "producer_consumer_2", Query: "What's the best way to implement producer-consumer pattern in Rust with async channels?"},
				{Label: "rest_structure", Query: "How to structure a REST API in Rust with Actix-web? Should I use one router or multiple modules?"},
				{Label: "arc_mutex_rwlock", Query: "What's the difference between Arc<Mutex<T>> and Arc<RwLock<T>>? When should I use each?"},
				{Label: "jwt_auth", Query: "How do I implement JWT authentication in a Rust web API? Which crate should I use?"},
				{Label: "db_pooling", Query: "What's the best way to handle database connection pooling in Rust with SQLx and async?"},
				{Label: "custom_iterator", Query: "How to implement a custom iterator in Rust that filters and maps values lazily?"},
				{Label: "box_rc_arc", Query: "Should I use Box, Rc, or Arc for my data structure in Rust? What are the tradeoffs?"},
				{Label: "error_design", Query: "How do I properly structure error handling in a large Rust project with custom error types?"},
				{Label: "workspace_org", Query: "What's the recommended way to organize a Rust workspace with multiple crates and shared dependencies?"},
			},
		}},
	}
}

func semantic() Suite {
	return Suite{
		Name:        SuiteSemantic,
		Title:       "Semantic Variations",
		Description: "Testing if cache catches different phrasings of same question",
		Groups: []Group{
			{
				Scenario: "semantic_oauth",
				Heading:  "OAuth Implementation",
				Steps: []Step{
					{Label: "oauth_base", Query: "How do I implement OAuth2 authentication in Rust with Actix-web?"},
					{Label: "oauth_var1", Query: "What's the best way to add OAuth2 to an Actix-web application in Rust?"},
					{Label: "oauth_var2", Query: "How to handle OAuth2 authentication in Rust using Actix-web framework?"},
				},
			},
			{
				Scenario: "semantic_error",
				Heading:  "Error Handling",
				Steps: []Step{
					{Label: "error_base", Query: "How do I properly handle errors in async Rust without using unwrap?"},
					{Label: "error_var1", Query: "What's the best way to handle errors in Rust async code without unwrap?"},
					{Label: "error_var2", Query: "How to avoid unwrap and handle errors properly in Rust async functions?"},
				},
			},
			{
				Scenario: "semantic_unrelated",
				Heading:  "Unrelated Queries (should miss)",
				Steps: []Step{
					{Label: "unrelated_1", Query: "How do I deploy a Rust application to AWS Lambda?"},
					{Label: "unrelated_2", Query: "What's the difference between async-std and tokio in Rust?"},
					{Label: "unrelated_3", Query: "How to write unit tests in Rust with mock objects?"},
				},
			},
		},
	}
}

func temperature() Suite {
	const query = "Write a story about a robot learning Rust"
	return Suite{
		Name:  SuiteTemperature,
		Title: "Temperature",
		Groups: []Group{{
			Scenario: SuiteTemperature,
			Steps: []Step{
				{Label: "temp_0.0", Query: query, Temperature: 0.0},
				{Label: "temp_0.7", Query: query, Temperature: 0.7},
				{Label: "temp_1.0", Query: query, Temperature: 1.0},
				{Label: "repeat_0.0", Query: query, Temperature: 0.0},
			},
		}},
	}
}

func maxTokens() Suite {
	const query = "Explain Rust ownership"
	return Suite{
		Name:  SuiteMaxTokens,
		Title: "Max Tokens",
		Groups: []Group{{
			Scenario: SuiteMaxTokens,
			Steps: []Step{
				{Label: "max_50", Query: query, MaxTokens: 50},
				{Label: "max_200", Query: query, MaxTokens: 200},
				{Label: "max_none", Query: query},
			},
		}},
	}
}

// Demo is the five-question walk: a miss, an exact repeat, two paraphrases and
// an unrelated question.
func Demo() Suite {
	return Suite{
		Name:  SuiteDemo,
		Title: "Semantic Cache Demo",
		Groups: []Group{{
			Scenario: SuiteDemo,
			Steps: []Step{
				{Label: "first_ask", Query: "What is the capital of France?"},
				{Label: "exact_repeat", Query: "What is the capital of France?"},
				{Label: "paraphrase_1", Query: "Which city serves as France's capital?"},
				{Label: "paraphrase_2", Query: "Tell me the capital city of France."},
				{Label: "unrelated", Query: "What is the boiling point of water?"},
			},
		}},
	}
}
