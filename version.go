package notegate

const VERSION = "0.1.0"
