package config

// Syllabus maps subject -> chapter -> topics. New assignments must name a
// subject/chapter pair from it; topics are free text.
type Syllabus map[string]map[string][]string

func DefaultSyllabus() Syllabus {
	return Syllabus{
		"Computer Science": {
			"Programming & Data Structures": {"Arrays", "Stacks", "Queues", "Trees", "Graphs", "Hashing"},
			"Algorithms":                    {"Analysis", "Sorting", "Searching", "Greedy", "Dynamic Programming", "Graph Algorithms"},
			"Operating Systems":             {"Process Management", "Memory Management", "File Systems", "Deadlocks", "Scheduling"},
			"Database Management":           {"ER Model", "Relational Model", "SQL", "Normalization", "Transactions", "Indexing"},
			"Computer Networks":             {"OSI Model", "TCP/IP", "Routing", "Error Control", "Application Layer"},
			"Computer Organization":         {"Digital Logic", "Machine Instructions", "CPU Design", "Memory Hierarchy"},
			"Theory of Computation":         {"Finite Automata", "Regular Expressions", "Context-Free Grammars", "Turing Machines"},
			"Compiler Design":               {"Lexical Analysis", "Syntax Analysis", "Semantic Analysis", "Code Generation"},
		},
	}
}

// Has reports whether the subject/chapter pair exists in the syllabus.
func (s Syllabus) Has(subject, chapter string) bool {
	chapters, ok := s[subject]
	if !ok {
		return false
	}
	_, ok = chapters[chapter]
	return ok
}
