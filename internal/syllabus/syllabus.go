// Package syllabus holds the fixed class/subject/topic tables the wizard
// validates every specification mutation against. The tables are the source of
// truth: caller-supplied class, subject and topic strings are never trusted.
package syllabus

import "slices"

// Classes lists the supported class levels in display order.
var Classes = []int{9, 10, 11, 12}

var subjectsByClass = map[int][]string{
	9:  {"Mathematics", "Science"},
	10: {"Mathematics", "Science"},
	11: {"Mathematics", "Physics", "Chemistry"},
	12: {"Mathematics", "Physics", "Chemistry"},
}

var topics = map[int]map[string][]string{
	9: {
		"Mathematics": {"Number Systems", "Polynomials", "Coordinate Geometry", "Linear Equations in Two Variables", "Euclid's Geometry", "Lines and Angles", "Triangles", "Quadrilaterals", "Circles", "Heron's Formula", "Surface Areas and Volumes", "Statistics", "Probability"},
		"Science":     {"Matter in Our Surroundings", "Is Matter Around Us Pure", "Atoms and Molecules", "Structure of the Atom", "The Fundamental Unit of Life", "Tissues", "Motion", "Force and Laws of Motion", "Gravitation", "Work and Energy", "Sound", "Why Do We Fall Ill", "Natural Resources", "Improvement in Food Resources"},
	},
	10: {
		"Mathematics": {"Real Numbers", "Polynomials", "Pair of Linear Equations in Two Variables", "Quadratic Equations", "Arithmetic Progressions", "Triangles", "Coordinate Geometry", "Introduction to Trigonometry", "Some Applications of Trigonometry", "Circles", "Constructions", "Areas Related to Circles", "Surface Areas and Volumes", "Statistics", "Probability"},
		"Science":     {"Chemical Reactions and Equations", "Acids, Bases and Salts", "Metals and Non-metals", "Carbon and its Compounds", "Periodic Classification of Elements", "Life Processes", "Control and Coordination", "How do Organisms Reproduce?", "Heredity and Evolution", "Light - Reflection and Refraction", "Human Eye and Colourful World", "Electricity", "Magnetic Effects of Electric Current", "Sources of Energy", "Our Environment", "Sustainable Management of Natural Resources"},
	},
	11: {
		"Mathematics": {"Sets", "Relations and Functions", "Trigonometric Functions", "Principle of Mathematical Induction", "Complex Numbers and Quadratic Equations", "Linear Inequalities", "Permutations and Combinations", "Binomial Theorem", "Sequences and Series", "Straight Lines", "Conic Sections", "Introduction to Three Dimensional Geometry", "Limits and Derivatives", "Mathematical Reasoning", "Statistics", "Probability"},
		"Physics":     {"Physical World", "Units and Measurements", "Motion in a Straight Line", "Motion in a Plane", "Laws of Motion", "Work, Energy and Power", "System of Particles and Rotational Motion", "Gravitation", "Mechanical Properties of Solids", "Mechanical Properties of Fluids", "Thermal Properties of Matter", "Thermodynamics", "Kinetic Theory", "Oscillations", "Waves"},
		"Chemistry":   {"Some Basic Concepts of Chemistry", "Structure of Atom", "Classification of Elements and Periodicity in Properties", "Chemical Bonding and Molecular Structure", "States of Matter", "Thermodynamics", "Equilibrium", "Redox Reactions", "Hydrogen", "The s-Block Elements", "The p-Block Elements", "Organic Chemistry - Some Basic Principles and Techniques", "Hydrocarbons", "Environmental Chemistry"},
	},
	12: {
		"Mathematics": {"Relations and Functions", "Inverse Trigonometric Functions", "Matrices", "Determinants", "Continuity and Differentiability", "Application of Derivatives", "Integrals", "Application of Integrals", "Differential Equations", "Vector Algebra", "Three Dimensional Geometry", "Linear Programming", "Probability"},
		"Physics":     {"Electric Charges and Fields", "Electrostatic Potential and Capacitance", "Current Electricity", "Moving Charges and Magnetism", "Magnetism and Matter", "Electromagnetic Induction", "Alternating Current", "Electromagnetic Waves", "Ray Optics and Optical Instruments", "Wave Optics", "Dual Nature of Radiation and Matter", "Atoms", "Nuclei", "Semiconductor Electronics: Materials, Devices and Simple Circuits", "Communication Systems"},
		"Chemistry":   {"The Solid State", "Solutions", "Electrochemistry", "Chemical Kinetics", "Surface Chemistry", "General Principles and Processes of Isolation of Elements", "The p-Block Elements", "The d- and f-Block Elements", "Coordination Compounds", "Haloalkanes and Haloarenes", "Alcohols, Phenols and Ethers", "Aldehydes, Ketones and Carboxylic Acids", "Amines", "Biomolecules", "Polymers", "Chemistry in Everyday Life"},
	},
}

// ValidClass reports whether class is a supported class level.
func ValidClass(class int) bool {
	_, ok := subjectsByClass[class]
	return ok
}

// Subjects returns the subjects offered for a class, in display order.
// Unknown classes yield nil.
func Subjects(class int) []string {
	return slices.Clone(subjectsByClass[class])
}

// FirstSubject returns the first subject valid for a class. It is the subject
// a session falls back to when the class changes.
func FirstSubject(class int) string {
	subs := subjectsByClass[class]
	if len(subs) == 0 {
		return ""
	}
	return subs[0]
}

// ValidSubject reports whether subject is offered for class.
func ValidSubject(class int, subject string) bool {
	return slices.Contains(subjectsByClass[class], subject)
}

// Topics returns the ordered topic list for a (class, subject) pair.
// Unknown pairs yield nil.
func Topics(class int, subject string) []string {
	return slices.Clone(topics[class][subject])
}

// ValidTopic reports whether topic belongs to the syllabus for (class, subject).
func ValidTopic(class int, subject, topic string) bool {
	return slices.Contains(topics[class][subject], topic)
}
